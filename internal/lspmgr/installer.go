package lspmgr

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LSPMetadata is the subset of a language-server release description the
// installer needs: a download URL per platform, an optional checksum,
// and where the binary lives once extracted. The caller of Install fills
// it in; internal/downloader keeps its own metadata table and does not
// build LSPMetadata values.
type LSPMetadata struct {
	Version      string
	BinaryName   string
	DownloadURLs map[string]string
	Checksums    map[string]string
	IsArchive    bool
	ArchivePath  string
}

// Installer downloads and installs language-server packages, recording
// them in a Manager's sqlite registry.
type Installer struct {
	manager    *Manager
	httpClient *http.Client
	logger     *zap.Logger
}

// NewInstaller creates an Installer bound to manager.
func NewInstaller(manager *Manager, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{
		manager: manager,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Install downloads and installs packageName at the version and URLs
// described by metadata, then records it in the registry as current.
func (i *Installer) Install(ctx context.Context, packageName string, metadata *LSPMetadata) error {
	if installed, version, _ := i.manager.IsInstalled(packageName); installed {
		i.logger.Info("lspmgr: already installed", zap.String("package", packageName), zap.String("version", version))
		return nil
	}

	platform := PlatformKey()
	downloadURL, ok := metadata.DownloadURLs[platform]
	if !ok {
		return fmt.Errorf("lspmgr: no download URL for platform %s", platform)
	}

	i.logger.Info("lspmgr: installing", zap.String("package", packageName), zap.String("version", metadata.Version))

	versionDir := filepath.Join(i.manager.packagesDir, packageName, metadata.Version)
	if err := os.MkdirAll(versionDir, 0755); err != nil {
		return fmt.Errorf("lspmgr: create version directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(i.manager.tmpDir, fmt.Sprintf("naviscope-lsp-%s-*", packageName))
	if err != nil {
		return fmt.Errorf("lspmgr: create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if err := i.downloadFile(ctx, downloadURL, tmpFile); err != nil {
		return fmt.Errorf("lspmgr: download failed: %w", err)
	}

	if checksum := metadata.Checksums[platform]; checksum != "" {
		if err := verifyChecksum(tmpFile.Name(), checksum); err != nil {
			return fmt.Errorf("lspmgr: checksum verification failed: %w", err)
		}
	}

	var binaryPath string
	if metadata.IsArchive {
		binaryPath, err = i.extractArchive(tmpFile.Name(), versionDir, metadata, platform)
		if err != nil {
			return fmt.Errorf("lspmgr: extraction failed: %w", err)
		}
	} else {
		binaryName := metadata.BinaryName
		if runtime.GOOS == "windows" && filepath.Ext(binaryName) != ".exe" {
			binaryName += ".exe"
		}
		binaryPath = filepath.Join(versionDir, binaryName)
		if err := copyFile(tmpFile.Name(), binaryPath); err != nil {
			return fmt.Errorf("lspmgr: copy binary: %w", err)
		}
		if err := os.Chmod(binaryPath, 0755); err != nil {
			return fmt.Errorf("lspmgr: make binary executable: %w", err)
		}
	}

	if err := i.manager.recordInstall(Package{
		Name:        packageName,
		Version:     metadata.Version,
		BinaryName:  metadata.BinaryName,
		InstalledAt: time.Now(),
		DownloadURL: downloadURL,
		Checksum:    metadata.Checksums[platform],
	}); err != nil {
		return fmt.Errorf("lspmgr: record install: %w", err)
	}

	binPath, err := BinaryPath(metadata.BinaryName)
	if err != nil {
		return err
	}
	if err := createSymlink(binaryPath, binPath); err != nil {
		return fmt.Errorf("lspmgr: create binary symlink: %w", err)
	}

	i.logger.Info("lspmgr: installed", zap.String("package", packageName), zap.String("version", metadata.Version))
	return nil
}

func (i *Installer) downloadFile(ctx context.Context, url string, dest *os.File) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt*attempt) * time.Second
			i.logger.Info("lspmgr: retrying download", zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := i.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			continue
		}

		if _, err := dest.Seek(0, 0); err != nil {
			resp.Body.Close()
			return err
		}

		_, err = io.Copy(dest, resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return nil
	}

	return fmt.Errorf("download failed after %d attempts: %w", maxRetries, lastErr)
}

func (i *Installer) extractArchive(archivePath, destDir string, metadata *LSPMetadata, platform string) (string, error) {
	if strings.HasSuffix(archivePath, ".zip") {
		return i.extractZip(archivePath, destDir, metadata)
	}
	return i.extractTarGz(archivePath, destDir, metadata)
}

func (i *Installer) extractTarGz(archivePath, destDir string, metadata *LSPMetadata) (string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return "", fmt.Errorf("lspmgr: gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	targetPath := metadata.ArchivePath
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("lspmgr: tar read: %w", err)
		}

		if strings.HasSuffix(header.Name, targetPath) || header.Name == targetPath {
			binaryName := metadata.BinaryName
			if runtime.GOOS == "windows" && filepath.Ext(binaryName) != ".exe" {
				binaryName += ".exe"
			}
			binaryPath := filepath.Join(destDir, binaryName)
			if err := extractFile(tr, binaryPath, header.FileInfo().Mode()); err != nil {
				return "", err
			}
			return binaryPath, nil
		}
	}

	return "", fmt.Errorf("lspmgr: binary not found in archive: %s", targetPath)
}

func (i *Installer) extractZip(archivePath, destDir string, metadata *LSPMetadata) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	targetPath := metadata.ArchivePath
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, targetPath) || f.Name == targetPath {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			defer rc.Close()

			binaryName := metadata.BinaryName
			if runtime.GOOS == "windows" && filepath.Ext(binaryName) != ".exe" {
				binaryName += ".exe"
			}
			binaryPath := filepath.Join(destDir, binaryName)
			if err := extractFile(rc, binaryPath, f.Mode()); err != nil {
				return "", err
			}
			return binaryPath, nil
		}
	}

	return "", fmt.Errorf("lspmgr: binary not found in archive: %s", targetPath)
}

func extractFile(r io.Reader, destPath string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return err
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(destPath, 0755); err != nil {
			return err
		}
	}

	return nil
}

func verifyChecksum(filePath, expectedChecksum string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actualChecksum := hex.EncodeToString(h.Sum(nil))
	if actualChecksum != expectedChecksum {
		return fmt.Errorf("lspmgr: checksum mismatch: expected %s, got %s", expectedChecksum, actualChecksum)
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Close()
}
