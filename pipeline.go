package mpisys

import (
	"context"
	"io"
	"os"

	"github.com/leodido/mpisys/internal/logging"
	"github.com/leodido/mpisys/mpiprobe"
)

// Prober reports the installed MPI library. The compatibility guard only
// looks at its Version.
type Prober interface {
	Probe(ctx context.Context) (*mpiprobe.Library, error)
}

// ProberFunc adapts a function to [Prober].
type ProberFunc func(ctx context.Context) (*mpiprobe.Library, error)

// Probe implements [Prober].
func (f ProberFunc) Probe(ctx context.Context) (*mpiprobe.Library, error) {
	return f(ctx)
}

// Artifacts is what a successful [Build] produced.
type Artifacts struct {
	Profile  Profile        `json:"profile" yaml:"profile"`
	Library  LibraryProfile `json:"library" yaml:"library"`
	Compiler string         `json:"compiler" yaml:"compiler"`
	// Variant is the probed library identity, empty when probing failed.
	Variant      string      `json:"variant,omitempty" yaml:"variant,omitempty"`
	ShimLibrary  string      `json:"shim_library" yaml:"shim_library"`
	Directives   []Directive `json:"directives" yaml:"directives"`
	BindingsPath string      `json:"bindings_path" yaml:"bindings_path"`
}

type buildConfig struct {
	exec       Executor
	prober     Prober
	out        io.Writer
	log        logging.Logger
	harvesters []IncludeHarvester
}

// BuildOption configures [Build].
type BuildOption func(*buildConfig)

// WithExecutor runs every external tool through ex.
func WithExecutor(ex Executor) BuildOption {
	return func(c *buildConfig) {
		c.exec = ex
	}
}

// WithProber replaces the MPI probe used by the compatibility guard.
func WithProber(p Prober) BuildOption {
	return func(c *buildConfig) {
		c.prober = p
	}
}

// WithDirectiveWriter sets the harness control channel. Defaults to stdout.
func WithDirectiveWriter(w io.Writer) BuildOption {
	return func(c *buildConfig) {
		c.out = w
	}
}

// WithLogger sets the logger for progress and diagnostics.
func WithLogger(l logging.Logger) BuildOption {
	return func(c *buildConfig) {
		c.log = l
	}
}

// WithHarvesters replaces [DefaultHarvesters].
func WithHarvesters(hs ...IncludeHarvester) BuildOption {
	return func(c *buildConfig) {
		c.harvesters = hs
	}
}

// Build runs the full pipeline for cfg:
//
//  1. the feature compatibility guard, against the probed library variant
//  2. the environment signal and profile selection
//  3. the shim compile and archive
//  4. binding generation
//
// Directives are written only once every stage has succeeded, so a failed
// build leaves nothing on the control channel.
func Build(ctx context.Context, cfg Config, opts ...BuildOption) (*Artifacts, error) {
	bc := &buildConfig{
		exec:   OSExecutor{},
		prober: ProberFunc(mpiprobe.Probe),
		out:    os.Stdout,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(bc)
	}
	log := bc.log

	variant := probeVariant(ctx, bc)
	state, err := CheckCompatibility(GuardInput{
		Variant:  variant,
		Features: cfg.Features,
		Arch:     cfg.targetArch(),
	})
	log.Debug(ctx, "compatibility guard", "state", state, "variant", variant, "arch", cfg.targetArch())
	if err != nil {
		return nil, err
	}

	sig, err := ReadSignal(cfg)
	if err != nil {
		return nil, err
	}
	sel, err := Select(sig)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "profile selected", "signal", sig, "profile", sel.Profile, "compiler", sel.Compiler)

	if cfg.OutDir == "" {
		return nil, &ConfigError{Variable: EnvOutDir, Err: ErrMissingVariable}
	}

	shim, err := NewShimCompiler(cfg, bc.exec).Compile(ctx, sel)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "shim compiled", "library", shim.Library, "toolchain", shim.Toolchain.Family)

	var directives []Directive
	if name := VariantCfg(variant); name != "" {
		directives = append(directives, Directive{Kind: DirectiveCfg, Value: name})
	}
	directives = append(directives, shim.Directives...)
	directives = append(directives, LinkDirectives(sel.Library)...)

	path, err := GenerateBindings(ctx, BindingsRequest{
		Selection:    sel,
		Toolchain:    shim.Toolchain,
		Harvesters:   bc.harvesters,
		SourceDir:    cfg.SourceDir,
		OutDir:       cfg.OutDir,
		Clang:        cfg.Clang,
		Package:      cfg.packageName(),
		NoBuiltins:   cfg.NoBuiltins,
		Directives:   directives,
		Executor:     bc.exec,
		Env:          shim.Toolchain.Env,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	if err := EmitDirectives(bc.out, directives); err != nil {
		return nil, err
	}

	return &Artifacts{
		Profile:      sel.Profile,
		Library:      sel.Library,
		Compiler:     sel.Compiler,
		Variant:      variant,
		ShimLibrary:  shim.Library,
		Directives:   directives,
		BindingsPath: path,
	}, nil
}

// probeVariant returns the probed library identity. A failed probe is not
// fatal: the static profiles still apply and the guard sees no variant.
func probeVariant(ctx context.Context, bc *buildConfig) string {
	if bc.prober == nil {
		return ""
	}
	lib, err := bc.prober.Probe(ctx)
	if err != nil {
		bc.log.Debug(ctx, "mpi probe failed", "error", err)
		return ""
	}
	bc.log.Debug(ctx, "mpi probe", "version", lib.Version, "source", lib.Source)
	return lib.Version
}
