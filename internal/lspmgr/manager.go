package lspmgr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Manager handles language-server package installation, lookup, and
// removal against the sqlite registry.
type Manager struct {
	packagesDir string
	binDir      string
	tmpDir      string
	registry    *RegistryStore
}

// NewManager creates a Manager rooted at the naviscope lspmgr home,
// opening (and migrating) its sqlite registry.
func NewManager() (*Manager, error) {
	if err := EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("lspmgr: initialize directories: %w", err)
	}

	packagesDir, err := PackagesDir()
	if err != nil {
		return nil, err
	}
	binDir, err := BinDir()
	if err != nil {
		return nil, err
	}
	tmpDir, err := TmpDir()
	if err != nil {
		return nil, err
	}
	registryPath, err := RegistryPath()
	if err != nil {
		return nil, err
	}
	registry, err := OpenRegistryStore(registryPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		packagesDir: packagesDir,
		binDir:      binDir,
		tmpDir:      tmpDir,
		registry:    registry,
	}, nil
}

// Close releases the registry's underlying database handle.
func (m *Manager) Close() error { return m.registry.Close() }

// IsInstalled reports whether packageName has a current version
// recorded in the registry, and that version's directory still exists.
func (m *Manager) IsInstalled(packageName string) (bool, string, error) {
	pkg, ok, err := m.registry.Current(packageName)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "", nil
	}

	versionDir := filepath.Join(m.packagesDir, packageName, pkg.Version)
	if _, err := os.Stat(versionDir); err != nil {
		return false, "", nil
	}
	return true, pkg.Version, nil
}

// ListInstalled returns every package version the registry knows about.
func (m *Manager) ListInstalled() ([]Package, error) {
	return m.registry.List()
}

// Uninstall removes a package's binary symlink, its on-disk versions,
// and its registry rows.
func (m *Manager) Uninstall(ctx context.Context, packageName string) error {
	installed, _, err := m.IsInstalled(packageName)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("lspmgr: package not installed: %s", packageName)
	}

	pkg, _, err := m.registry.Current(packageName)
	if err == nil {
		binPath, _ := BinaryPath(pkg.BinaryName)
		_ = removeSymlink(binPath)
	}

	pkgDir := filepath.Join(m.packagesDir, packageName)
	if err := os.RemoveAll(pkgDir); err != nil {
		return fmt.Errorf("lspmgr: remove package directory: %w", err)
	}
	return m.registry.Remove(packageName)
}

// GetBinaryPath returns the path to an installed package's binary.
func (m *Manager) GetBinaryPath(packageName string) (string, error) {
	pkg, ok, err := m.registry.Current(packageName)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("lspmgr: package not installed: %s", packageName)
	}
	return BinaryPath(pkg.BinaryName)
}

// recordInstall writes pkg to the registry and marks it current.
func (m *Manager) recordInstall(pkg Package) error {
	pkg.InstalledAt = pkg.InstalledAt.UTC()
	if err := m.registry.Put(pkg); err != nil {
		return err
	}
	return m.registry.MarkCurrent(pkg.Name, pkg.Version)
}

// createSymlink creates a symlink or shim for the binary.
func createSymlink(source, target string) error {
	_ = os.Remove(target)

	if runtime.GOOS == "windows" {
		return createWindowsShim(source, target)
	}
	return os.Symlink(source, target)
}

// removeSymlink removes a symlink or shim.
func removeSymlink(path string) error {
	if runtime.GOOS == "windows" {
		if err := os.Remove(path + ".bat"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return os.Remove(path)
}

// createWindowsShim creates a .bat file that calls the actual binary.
func createWindowsShim(binaryPath, shimPath string) error {
	batContent := fmt.Sprintf("@echo off\r\n\"%s\" %%*\r\n", binaryPath)
	return os.WriteFile(shimPath+".bat", []byte(batContent), 0755)
}

// AddToPath adds the bin directory to the environment PATH for the
// current process.
func (m *Manager) AddToPath() error {
	currentPath := os.Getenv("PATH")
	for _, p := range filepath.SplitList(currentPath) {
		if p == m.binDir {
			return nil
		}
	}
	newPath := m.binDir + string(os.PathListSeparator) + currentPath
	return os.Setenv("PATH", newPath)
}
