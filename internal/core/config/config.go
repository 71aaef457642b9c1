package config

import "time"

const DefaultFile = "pyshape.toml"

type Config struct {
	Version       int           `toml:"version"`
	Root          string        `toml:"root"`
	Paths         []string      `toml:"paths"`
	Options       []string      `toml:"options"`
	Exclude       Exclude       `toml:"exclude"`
	Run           Run           `toml:"run"`
	Watch         Watch         `toml:"watch"`
	Cache         Cache         `toml:"cache"`
	External      External      `toml:"external"`
	Observability Observability `toml:"observability"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Run struct {
	Workers int  `toml:"workers"`
	Check   bool `toml:"check"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Cache struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

// On reports whether the clean-file cache is in use. It defaults to on.
func (c Cache) On() bool {
	return c.Enabled == nil || *c.Enabled
}

type External struct {
	Timeout      time.Duration `toml:"timeout"`
	MaxPerSecond float64       `toml:"max_per_second"`
	Burst        int           `toml:"burst"`
	// Commands binds external pass keys to argv. "{path}" expands to the
	// file being processed.
	Commands map[string][]string `toml:"commands"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}
