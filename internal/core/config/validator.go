package config

import (
	"fmt"
	"strings"

	"pyshape/internal/core/config/helpers"
	"pyshape/internal/core/errors"
	"pyshape/internal/engine/pipeline"
)

// Validate runs every check against an already defaulted configuration.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validatePaths,
		validateExclude,
		validateOptions,
		validateExternal,
		validateRun,
	} {
		if err := check(cfg); err != nil {
			return errors.Wrap(err, errors.CodeConfigInvalid, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePaths(cfg *Config) error {
	for i, p := range cfg.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("paths[%d] must not be empty", i)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	if _, err := helpers.NewFilter(cfg.Exclude.Dirs, cfg.Exclude.Files); err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	return nil
}

func validateOptions(cfg *Config) error {
	if _, err := pipeline.Resolve(cfg.Options); err != nil {
		return err
	}
	for _, opt := range cfg.Options {
		pass, _ := pipeline.Lookup(opt)
		if pass.Kind != pipeline.External {
			continue
		}
		if len(cfg.External.Commands[pass.Key]) == 0 {
			return fmt.Errorf("option %q needs a command under [external.commands]", pass.Key)
		}
	}
	return nil
}

func validateExternal(cfg *Config) error {
	for key, argv := range cfg.External.Commands {
		pass, ok := pipeline.Lookup(key)
		if !ok || pass.Kind != pipeline.External {
			return fmt.Errorf("external.commands.%s does not name an external pass", key)
		}
		if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
			return fmt.Errorf("external.commands.%s must name a program", key)
		}
	}
	if cfg.External.MaxPerSecond < 0 {
		return fmt.Errorf("external.max_per_second must be >= 0")
	}
	return nil
}

func validateRun(cfg *Config) error {
	if cfg.Run.Workers > 256 {
		return fmt.Errorf("run.workers must be between 1 and 256, got %d", cfg.Run.Workers)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}
