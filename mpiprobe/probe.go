package mpiprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// ErrNotFound is returned when no strategy located an MPI installation.
var ErrNotFound = errors.New("no MPI installation found")

// errNotApplicable marks a strategy that does not apply to this host.
var errNotApplicable = errors.New("not applicable")

// VariantMSMPI is the Version reported for Microsoft MPI.
const VariantMSMPI = "MS-MPI"

// Library describes a discovered MPI installation.
type Library struct {
	Libs         []string `json:"libs" yaml:"libs"`
	LibPaths     []string `json:"lib_paths" yaml:"lib_paths"`
	IncludePaths []string `json:"include_paths" yaml:"include_paths"`
	// Version identifies the implementation, e.g. "MS-MPI" or
	// "Open MPI 4.1.2".
	Version string `json:"version" yaml:"version"`
	// Source names the strategy that found the library.
	Source string `json:"source" yaml:"source"`
	Host   Host   `json:"host" yaml:"host"`
}

// Host identifies the machine the probe ran on.
type Host struct {
	Sysname string `json:"sysname" yaml:"sysname"`
	Release string `json:"release" yaml:"release"`
	Machine string `json:"machine" yaml:"machine"`
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LookupFunc has the signature of [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// Cache for Probe() results. An installed MPI does not move during a build.
var (
	cachedLibrary *Library
	cacheMu       sync.Mutex
	cacheErr      error
)

// probeConfig holds the configuration for a probe operation.
type probeConfig struct {
	run    Runner
	lookup LookupFunc
	goos   string
	goarch string
	pkgs   []string
	skip   map[string]bool
}

// ProbeOption configures [ProbeWith].
type ProbeOption func(*probeConfig)

// WithRunner replaces the command runner.
func WithRunner(r Runner) ProbeOption {
	return func(c *probeConfig) {
		c.run = r
	}
}

// WithEnv replaces the environment lookup.
func WithEnv(lookup LookupFunc) ProbeOption {
	return func(c *probeConfig) {
		c.lookup = lookup
	}
}

// WithTarget overrides the operating system and architecture the probe
// assumes. It only affects strategy selection and library directories.
func WithTarget(goos, goarch string) ProbeOption {
	return func(c *probeConfig) {
		c.goos = goos
		c.goarch = goarch
	}
}

// WithPkgConfigNames sets the pkg-config modules tried, in order.
func WithPkgConfigNames(names ...string) ProbeOption {
	return func(c *probeConfig) {
		c.pkgs = names
	}
}

// WithoutStrategy disables a strategy by name ("msmpi", "mpicc", "pkg-config").
func WithoutStrategy(name string) ProbeOption {
	return func(c *probeConfig) {
		c.skip[name] = true
	}
}

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (c *probeConfig) getenv(key string) string {
	v, _ := c.lookup(key)
	return v
}

type strategy struct {
	name  string
	probe func(ctx context.Context, c *probeConfig) (*Library, error)
}

var strategies = []strategy{
	{"msmpi", probeMSMPI},
	{"mpicc", probeMPICC},
	{"pkg-config", probePkgConfig},
}

// ProbeWith locates an MPI installation. Strategies run in order and the
// first success wins. Failures are collected into the returned error, which
// wraps [ErrNotFound].
func ProbeWith(ctx context.Context, opts ...ProbeOption) (*Library, error) {
	cfg := &probeConfig{
		run:    defaultRunner,
		lookup: os.LookupEnv,
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		pkgs:   []string{"mpich", "ompi", "mpi"},
		skip:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var errs []error
	for _, s := range strategies {
		if cfg.skip[s.name] {
			continue
		}
		lib, err := s.probe(ctx, cfg)
		if err == nil {
			lib.Source = s.name
			lib.Host = hostInfo()
			return lib, nil
		}
		if errors.Is(err, errNotApplicable) {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no strategy applies to %s", ErrNotFound, cfg.goos)
	}
	return nil, fmt.Errorf("%w: %w", ErrNotFound, errors.Join(errs...))
}

// Probe locates MPI once and caches the result.
// Use [ProbeNoCache] if you need fresh results.
func Probe(ctx context.Context) (*Library, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cachedLibrary != nil || cacheErr != nil {
		return cachedLibrary, cacheErr
	}
	cachedLibrary, cacheErr = ProbeWith(ctx)
	return cachedLibrary, cacheErr
}

// ProbeNoCache probes without consulting the cache.
func ProbeNoCache(ctx context.Context) (*Library, error) {
	return ProbeWith(ctx)
}

// ResetCache clears cached probe results, forcing the next [Probe] call to re-probe.
// This is primarily useful for testing.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cachedLibrary = nil
	cacheErr = nil
}

// msmpiSDKRoot is where the MS-MPI SDK installs when no variables are set.
const msmpiSDKRoot = `C:\Program Files (x86)\Microsoft SDKs\MPI`

// probeMSMPI reads the variables the MS-MPI SDK installer sets, falling back
// to the registry for the runtime location.
func probeMSMPI(_ context.Context, c *probeConfig) (*Library, error) {
	if c.goos != "windows" {
		return nil, errNotApplicable
	}

	libVar := "MSMPI_LIB64"
	libArch := "x64"
	if c.goarch == "386" {
		libVar = "MSMPI_LIB32"
		libArch = "x86"
	}

	inc := c.getenv("MSMPI_INC")
	libDir := c.getenv(libVar)
	if inc == "" || libDir == "" {
		if _, err := msmpiInstallRoot(); err != nil {
			return nil, fmt.Errorf("MSMPI_INC/%s unset and no registry entry: %w", libVar, err)
		}
		if inc == "" {
			inc = msmpiSDKRoot + `\Include`
		}
		if libDir == "" {
			libDir = msmpiSDKRoot + `\Lib\` + libArch
		}
	}

	return &Library{
		Libs:         []string{"msmpi"},
		LibPaths:     []string{strings.TrimRight(libDir, `\`)},
		IncludePaths: []string{strings.TrimRight(inc, `\`)},
		Version:      VariantMSMPI,
	}, nil
}

// probeMPICC asks the compiler wrapper for the flags it adds.
func probeMPICC(ctx context.Context, c *probeConfig) (*Library, error) {
	if c.goos == "windows" {
		return nil, errNotApplicable
	}
	mpicc := c.getenv("MPICC")
	if mpicc == "" {
		mpicc = "mpicc"
	}

	out, err := c.run(ctx, mpicc, "-show")
	if err != nil {
		return nil, err
	}
	args, err := splitFlags(out)
	if err != nil {
		return nil, fmt.Errorf("%s -show: %w", mpicc, err)
	}
	lib := parseFlags(args)
	if len(lib.Libs) == 0 {
		return nil, fmt.Errorf("%s -show: no libraries in %q", mpicc, strings.TrimSpace(string(out)))
	}
	lib.Version = wrapperVersion(ctx, c, mpicc)
	return lib, nil
}

// wrapperVersion tries the Open MPI query first, then the MPICH one.
func wrapperVersion(ctx context.Context, c *probeConfig, mpicc string) string {
	for _, args := range [][]string{{"--showme:version"}, {"-v"}} {
		out, err := c.run(ctx, mpicc, args...)
		if err != nil {
			continue
		}
		if v := parseVersion(string(out)); v != "" {
			return v
		}
	}
	return ""
}

func probePkgConfig(ctx context.Context, c *probeConfig) (*Library, error) {
	var errs []error
	for _, name := range c.pkgs {
		out, err := c.run(ctx, "pkg-config", "--cflags", "--libs", name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		args, err := splitFlags(out)
		if err != nil {
			errs = append(errs, fmt.Errorf("pkg-config %s: %w", name, err))
			continue
		}
		lib := parseFlags(args)
		if len(lib.Libs) == 0 {
			errs = append(errs, fmt.Errorf("pkg-config %s: no libraries", name))
			continue
		}
		if v, err := c.run(ctx, "pkg-config", "--modversion", name); err == nil {
			lib.Version = strings.TrimSpace(name + " " + strings.TrimSpace(string(v)))
		}
		return lib, nil
	}
	return nil, errors.Join(errs...)
}

// splitFlags splits tool output into arguments with shell quoting rules, so
// quoted or escaped paths with spaces stay whole.
func splitFlags(out []byte) ([]string, error) {
	args, err := shellwords.Parse(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("split flags: %w", err)
	}
	return args, nil
}

// parseFlags extracts -I, -L and -l arguments, in order and de-duplicated.
func parseFlags(args []string) *Library {
	lib := &Library{}
	add := func(list *[]string, v string) {
		if v == "" {
			return
		}
		for _, have := range *list {
			if have == v {
				return
			}
		}
		*list = append(*list, v)
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		for _, f := range []struct {
			prefix string
			list   *[]string
		}{
			{"-I", &lib.IncludePaths},
			{"-L", &lib.LibPaths},
			{"-l", &lib.Libs},
		} {
			if !strings.HasPrefix(arg, f.prefix) {
				continue
			}
			v := strings.TrimPrefix(arg, f.prefix)
			if v == "" && i+1 < len(args) {
				i++
				v = args[i]
			}
			if f.prefix != "-l" {
				v = filepath.Clean(v)
			}
			add(f.list, v)
			break
		}
	}
	return lib
}

// parseVersion keeps the implementation name from a wrapper's version banner.
func parseVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	line = strings.TrimSpace(line)
	switch {
	case strings.Contains(line, "Open MPI"):
		// "mpicc: Open MPI 4.1.2 (Language: C)"
		i := strings.Index(line, "Open MPI")
		v, _, _ := strings.Cut(line[i:], " (")
		return v
	case strings.Contains(line, "MPICH version"):
		// "mpicc for MPICH version 4.0"
		i := strings.Index(line, "MPICH version")
		return "MPICH " + strings.TrimSpace(strings.TrimPrefix(line[i:], "MPICH version"))
	}
	return ""
}
