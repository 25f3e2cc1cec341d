// Package config loads Naviscope's runtime configuration through the
// same layered koanf pipeline ritzau-deps-analyzer's pkg/config/config.go
// uses: defaults, then an optional config file, then environment
// variables, then CLI flags, each layer overriding the last.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds every setting the composition root threads into the
// engine, watcher, lspmgr, and mcpserver layers.
type Config struct {
	ProjectRoot string `koanf:"project_root"`
	IndexDir    string `koanf:"index_dir"`

	Watch            bool `koanf:"watch"`
	DebounceMillis   int  `koanf:"debounce_ms"`
	RebuildThreshold int  `koanf:"rebuild_threshold"`

	LogLevel    string `koanf:"log_level"`
	MetricsAddr string `koanf:"metrics_addr"`

	LSPEnabled    bool   `koanf:"lsp_enabled"`
	LSPCustomPath string `koanf:"lsp_custom_path"`

	SystemPromptPath string `koanf:"system_prompt_path"`
}

// Load reads defaults, then `.naviscope.yaml` in the working directory
// (ignored if absent), then `NAVISCOPE_*` environment variables, then
// flags registered on fs, in that increasing order of precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"project_root":       ".",
		"index_dir":          "",
		"watch":              false,
		"debounce_ms":        500,
		"rebuild_threshold":  200,
		"log_level":          "info",
		"metrics_addr":       ":9090",
		"lsp_enabled":        true,
		"lsp_custom_path":    "",
		"system_prompt_path": "",
	}
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	_ = k.Load(file.Provider(".naviscope.yaml"), yaml.Parser())

	if err := k.Load(env.Provider("NAVISCOPE_", ".", func(s string) string {
		// A double underscore denotes nesting (koanf's "." delimiter); a
		// single underscore is literal, since every leaf key here
		// (debounce_ms, log_level, ...) already contains one.
		lower := strings.ToLower(strings.TrimPrefix(s, "NAVISCOPE_"))
		return strings.ReplaceAll(lower, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env vars: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

type staticProvider struct {
	m map[string]interface{}
}

func mapProvider(m map[string]interface{}) *staticProvider { return &staticProvider{m: m} }

func (p *staticProvider) Read() (map[string]interface{}, error) { return p.m, nil }

func (p *staticProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("config: ReadBytes not supported on the defaults provider")
}
