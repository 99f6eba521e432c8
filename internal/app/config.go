package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/watchgraph/internal/decl"
)

// Dump formats accepted by Config.DumpFormat.
const (
	DumpDot  = "dot"
	DumpYAML = "yaml"
	DumpJSON = "json"
	DumpNone = "none"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ComponentPaths []string // hcl files or directories
	Render         []string // component names; empty renders every top-level component
	Sets           []string // Component.property=value, applied after the initial render

	DumpFormat   string
	LogFormat    string
	LogLevel     string
	InspectPort  int
	LivetraceURL string
	Wait         time.Duration // keep the graph running this long after the writes
}

// Write is one parsed entry of Config.Sets.
type Write struct {
	Component string
	Property  string
	Value     any
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ComponentPaths) == 0 {
		return nil, errors.New("ComponentPaths is a required configuration field and cannot be empty")
	}
	switch cfg.DumpFormat {
	case "":
		cfg.DumpFormat = DumpNone
	case DumpDot, DumpYAML, DumpJSON, DumpNone:
	default:
		return nil, fmt.Errorf("invalid dump format %q: must be one of dot, yaml, json or none", cfg.DumpFormat)
	}
	if cfg.Wait < 0 {
		return nil, fmt.Errorf("invalid wait %s: must not be negative", cfg.Wait)
	}
	if _, err := cfg.Writes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Writes parses Sets. Values are read as HCL literals, so -set C.n=3 writes
// a number and -set C.s=hello a string.
func (c *Config) Writes() ([]Write, error) {
	out := make([]Write, 0, len(c.Sets))
	for _, s := range c.Sets {
		target, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("invalid write %q: expected Component.property=value", s)
		}
		comp, prop, ok := strings.Cut(strings.TrimSpace(target), ".")
		if !ok || comp == "" || prop == "" {
			return nil, fmt.Errorf("invalid write %q: expected Component.property=value", s)
		}
		out = append(out, Write{Component: comp, Property: prop, Value: decl.Literal(strings.TrimSpace(value))})
	}
	return out, nil
}
