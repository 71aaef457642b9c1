package config

import (
	"os"
	"runtime"
	"strings"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/pipeline"

	"github.com/BurntSushi/toml"
)

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read config"), errors.CtxPath, path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Parse decodes TOML text into a validated configuration.
func Parse(text string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(text, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "decode config")
	}
	applyDefaults(&cfg)
	normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	normalize(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}
	if len(cfg.Options) == 0 {
		cfg.Options = BuiltinOptions()
	}
	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", "__pycache__", ".venv*", "venv", ".tox", "node_modules", ".pyshape"}
	}
	if cfg.Run.Workers <= 0 {
		cfg.Run.Workers = runtime.NumCPU()
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = ".pyshape/cache.db"
	}
	if cfg.External.Timeout <= 0 {
		cfg.External.Timeout = 30 * time.Second
	}
	if cfg.External.Burst <= 0 {
		cfg.External.Burst = 1
	}
}

func normalize(cfg *Config) {
	cfg.Root = strings.TrimSpace(cfg.Root)
	options := make([]string, 0, len(cfg.Options))
	for _, opt := range cfg.Options {
		if opt = pipeline.Normalize(opt); opt != "" {
			options = append(options, opt)
		}
	}
	cfg.Options = options
	if len(cfg.External.Commands) == 0 {
		return
	}
	commands := make(map[string][]string, len(cfg.External.Commands))
	for key, argv := range cfg.External.Commands {
		commands[pipeline.Normalize(key)] = argv
	}
	cfg.External.Commands = commands
}

// BuiltinOptions lists the built-in pass keys enabled by default, in
// sequence order. Opt-in passes are left out.
func BuiltinOptions() []string {
	var keys []string
	for _, p := range pipeline.Passes() {
		if p.Kind == pipeline.Builtin && !p.OptIn {
			keys = append(keys, p.Key)
		}
	}
	return keys
}
