package mpisys

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by [ConfigFromEnv].
const (
	EnvOutDir         = "OUT_DIR"
	EnvTargetArch     = "GOARCH"
	EnvUserOperations = "MPISYS_FEATURE_USER_OPERATIONS"
	EnvArchiver       = "AR"
	EnvBindgenClang   = "BINDGEN_CLANG"
)

// RawValue is an environment value together with whether it was set at all.
type RawValue struct {
	Value string
	Set   bool
}

// Config is everything the pipeline reads from its surroundings.
//
// It is built once by the invoking harness and passed to [Build]; the
// pipeline never consults the process environment itself.
type Config struct {
	// SignalVariable names the profile selector variable (default "CRAY").
	SignalVariable string `yaml:"signal_variable"`
	// Signal is the raw selector value; "cray" in a config file.
	Signal RawValue `yaml:"-"`

	// OutDir is the build-owned output directory.
	OutDir string `yaml:"out_dir"`
	// SourceDir is the root containing csrc/.
	SourceDir string `yaml:"source_dir"`
	// TargetArch is the target CPU architecture in GOARCH notation.
	TargetArch string `yaml:"target_arch"`

	// Features lists the requested optional capabilities.
	Features []Feature `yaml:"-"`

	// Archiver overrides the static library archiver.
	Archiver string `yaml:"archiver"`
	// Clang overrides the preprocessor used for binding generation.
	Clang string `yaml:"clang"`
	// Package is the Go package name of the generated bindings.
	Package string `yaml:"package"`
	// NoBuiltins drops predefined and system declarations from the bindings.
	NoBuiltins bool `yaml:"no_builtins"`

	// Env is the base environment handed to every tool invocation.
	Env []string `yaml:"-"`
}

func (c Config) signalVariable() string {
	if c.SignalVariable != "" {
		return c.SignalVariable
	}
	return DefaultSignalVariable
}

func (c Config) targetArch() string {
	if c.TargetArch != "" {
		return c.TargetArch
	}
	return runtime.GOARCH
}

func (c Config) packageName() string {
	if c.Package != "" {
		return c.Package
	}
	return "mpisys"
}

// HasFeature reports whether f was requested.
func (c Config) HasFeature(f Feature) bool {
	for _, got := range c.Features {
		if got == f {
			return true
		}
	}
	return false
}

// LookupFunc has the signature of [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// ConfigFromEnv builds a Config from the variables set by the build harness.
// The signal is recorded as found and validated by the pipeline; a feature
// flag with an unrecognized value is a *[ConfigError].
func ConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var cfg Config
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays variables that are set onto c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup(c.signalVariable()); ok {
		c.Signal = RawValue{Value: v, Set: true}
	}
	if v, ok := lookup(EnvOutDir); ok && v != "" {
		c.OutDir = v
	}
	if v, ok := lookup(EnvTargetArch); ok && v != "" {
		c.TargetArch = v
	}
	if v, ok := lookup(EnvUserOperations); ok {
		on, err := parseFlag(v)
		if err != nil {
			return &ConfigError{Variable: EnvUserOperations, Value: v, Err: err}
		}
		if on && !c.HasFeature(FeatureUserOperations) {
			c.Features = append(c.Features, FeatureUserOperations)
		}
	}
	if v, ok := lookup(EnvArchiver); ok && v != "" {
		c.Archiver = v
	}
	if v, ok := lookup(EnvBindgenClang); ok && v != "" {
		c.Clang = v
	}
	return nil
}

// parseFlag reads a feature variable. Presence enables the feature, so an
// empty value is on; anything outside the recognized words is an error.
func parseFlag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: want one of 1, true, yes, on, 0, false, no, off", ErrUnrecognizedValue)
}

// fileConfig is the on-disk shape of a config file.
type fileConfig struct {
	Config   `yaml:",inline"`
	Cray     *string  `yaml:"cray"`
	Features []string `yaml:"features"`
}

// LoadConfigFile reads a YAML config file. An empty path returns an empty
// Config; a named file that cannot be read is a *[ConfigError].
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Variable: "config", Value: path, Err: err}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, &ConfigError{Variable: filepath.Base(path), Err: err}
	}

	cfg := fc.Config
	if fc.Cray != nil {
		cfg.Signal = RawValue{Value: *fc.Cray, Set: true}
	}
	for _, name := range fc.Features {
		f, err := ParseFeature(name)
		if err != nil {
			return Config{}, &ConfigError{Variable: "features", Value: name, Err: err}
		}
		if !cfg.HasFeature(f) {
			cfg.Features = append(cfg.Features, f)
		}
	}
	return cfg, nil
}

// ParseFeature returns the feature with the given name.
func ParseFeature(name string) (Feature, error) {
	for f, n := range featureNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown feature %q", ErrUnrecognizedValue, name)
}
