package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"

	"github.com/leodido/mpisys"
	"github.com/leodido/mpisys/internal/logging"
	"github.com/leodido/mpisys/mpiprobe"
	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
	"gopkg.in/yaml.v3"
)

// Build metadata injected via ldflags.
// When built without ldflags (e.g., plain `go build`), these remain
// at their zero values and the version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mpisys",
		Short: "Build the native MPI layer for Go bindings",
		Long: `mpisys selects an MPI library profile from the build environment, compiles
the C shim against it, emits linker directives and generates cgo bindings.

Directives are written to stdout as "mpisys:<key>=<value>" lines for the
invoking harness. Logs go to stderr.`,
		SilenceUsage: true,
	}

	root.AddCommand(buildCmd())
	root.AddCommand(probeCmd())
	root.AddCommand(profilesCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(preflightCmd())
	root.AddCommand(versionCmd())
	return root
}

// outputFormat selects how reports are printed.
type outputFormat enumflag.Flag

const (
	formatText outputFormat = iota
	formatJSON
	formatYAML
)

var formatIdentifiers = map[outputFormat][]string{
	formatText: {"text"},
	formatJSON: {"json"},
	formatYAML: {"yaml"},
}

func parseFormat(s string) (outputFormat, error) {
	var f outputFormat
	v := enumflag.New(&f, "format", formatIdentifiers, enumflag.EnumCaseInsensitive)
	if err := v.Set(strings.TrimSpace(s)); err != nil {
		return formatText, fmt.Errorf("unknown format: %q (available: text, json, yaml)", s)
	}
	return f, nil
}

func defineFormat(fieldValue reflect.Value, descr string) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*outputFormat)
	return enumflag.New(fieldPtr, "format", formatIdentifiers, enumflag.EnumCaseInsensitive), descr
}

func decodeFormat(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseFormat(s)
}

// logFormat selects the slog handler for build logs.
type logFormat enumflag.Flag

const (
	logText logFormat = iota
	logJSON
)

var logFormatIdentifiers = map[logFormat][]string{
	logText: {"text"},
	logJSON: {"json"},
}

func parseLogFormat(s string) (logFormat, error) {
	var f logFormat
	v := enumflag.New(&f, "log-format", logFormatIdentifiers, enumflag.EnumCaseInsensitive)
	if err := v.Set(strings.TrimSpace(s)); err != nil {
		return logText, fmt.Errorf("unknown log format: %q (available: text, json)", s)
	}
	return f, nil
}

// BuildOptions defines flags for the build subcommand.
type BuildOptions struct {
	Config       string       `flag:"config" flagshort:"c" flagdescr:"YAML config file; environment and flags override it"`
	OutDir       string       `flag:"out-dir" flagshort:"o" flagdescr:"Output directory for the shim and bindings (default $OUT_DIR)"`
	SourceDir    string       `flag:"source-dir" flagshort:"s" flagdescr:"Directory containing csrc/ (default current directory)"`
	Arch         string       `flag:"arch" flagdescr:"Target architecture in GOARCH notation (default $GOARCH or host)"`
	Features     featureList  `flag:"feature" flagshort:"f" flagdescr:"Optional features to enable" flagcustom:"true"`
	Clang        string       `flag:"clang" flagdescr:"Preprocessor for binding generation (default $BINDGEN_CLANG or clang)"`
	Archiver     string       `flag:"archiver" flagdescr:"Static library archiver (default $AR)"`
	Package      string       `flag:"package" flagshort:"p" flagdescr:"Go package name of the generated bindings"`
	NoBuiltins   bool         `flag:"no-builtins" flagdescr:"Do not bind compiler predefined macros and system typedefs"`
	NoProbe      bool         `flag:"no-probe" flagdescr:"Skip MPI probing; the compatibility guard sees no variant"`
	Verbose      bool         `flag:"verbose" flagshort:"v" flagdescr:"Enable debug logging"`
	LogFormat    logFormat    `flag:"log-format" flagdescr:"Log format (text, json)" flagcustom:"true"`
}

func (o *BuildOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *BuildOptions) DefineFeatures(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *BuildOptions) DecodeFeatures(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseFeatureList(s)
}

func (o *BuildOptions) CompleteFeatures(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFeatures(toComplete)
}

func (o *BuildOptions) DefineLogFormat(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*logFormat)
	return enumflag.New(fieldPtr, "log-format", logFormatIdentifiers, enumflag.EnumCaseInsensitive), descr
}

func (o *BuildOptions) DecodeLogFormat(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseLogFormat(s)
}

// config layers the config file, the environment and the flags, in that order.
func (o *BuildOptions) config(lookup mpisys.LookupFunc) (mpisys.Config, error) {
	cfg, err := mpisys.LoadConfigFile(o.Config)
	if err != nil {
		return mpisys.Config{}, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return mpisys.Config{}, err
	}

	for _, override := range []struct {
		dst *string
		val string
	}{
		{&cfg.OutDir, o.OutDir},
		{&cfg.SourceDir, o.SourceDir},
		{&cfg.TargetArch, o.Arch},
		{&cfg.Clang, o.Clang},
		{&cfg.Archiver, o.Archiver},
		{&cfg.Package, o.Package},
	} {
		if override.val != "" {
			*override.dst = override.val
		}
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}
	if o.NoBuiltins {
		cfg.NoBuiltins = true
	}
	for _, f := range o.Features {
		if !cfg.HasFeature(f) {
			cfg.Features = append(cfg.Features, f)
		}
	}
	cfg.Env = os.Environ()
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool, format logFormat) logging.Logger {
	return logging.New(slog.New(logging.NewHandler(w, logging.Options{
		Verbose: verbose,
		JSON:    format == logJSON,
	})))
}

func buildCmd() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Select a profile, compile the shim and generate bindings",
		Long: `Run the full pipeline.

The profile is selected by $CRAY: "1" selects the Cray MPICH profile, "0" the
generic Unix Open MPI profile. Any other value, or an unset variable, fails the
build before any tool runs.`,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := opts.config(os.LookupEnv)
			if err != nil {
				return err
			}
			log := newLogger(c.ErrOrStderr(), opts.Verbose, opts.LogFormat)

			buildOpts := []mpisys.BuildOption{
				mpisys.WithLogger(log),
				mpisys.WithDirectiveWriter(c.OutOrStdout()),
			}
			if opts.NoProbe {
				buildOpts = append(buildOpts, mpisys.WithProber(nil))
			}

			art, err := mpisys.Build(c.Context(), cfg, buildOpts...)
			if err != nil {
				log.Error(c.Context(), "build failed", "error", err)
				return err
			}
			log.Debug(c.Context(), "build finished", "profile", art.Profile, "bindings", art.BindingsPath)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// ReportOptions defines the output flags shared by the reporting subcommands.
type ReportOptions struct {
	Format outputFormat `flag:"format" flagshort:"F" flagdescr:"Output format (text, json, yaml)" flagcustom:"true"`
}

func (o *ReportOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ReportOptions) DefineFormat(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	return defineFormat(fieldValue, descr)
}

func (o *ReportOptions) DecodeFormat(input any) (any, error) {
	return decodeFormat(input)
}

func probeCmd() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Locate the installed MPI library and display it",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			lib, err := mpiprobe.ProbeNoCache(c.Context())
			if err != nil {
				return err
			}
			return printReport(c.OutOrStdout(), opts.Format, lib, lib.String())
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// profileReport is the serialized form of one registry entry.
type profileReport struct {
	Name     string                `json:"name" yaml:"name"`
	Compiler string                `json:"compiler" yaml:"compiler"`
	Library  mpisys.LibraryProfile `json:"library" yaml:"library"`
}

func profileReports() []profileReport {
	reports := make([]profileReport, 0, len(mpisys.Profiles()))
	for _, p := range mpisys.Profiles() {
		reports = append(reports, profileReport{Name: p.String(), Compiler: p.Compiler(), Library: p.Library()})
	}
	return reports
}

func profilesText(reports []profileReport) string {
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (compiler: %s)\n", r.Name, r.Compiler)
		b.WriteString(r.Library.String())
	}
	return b.String()
}

func profilesCmd() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in library profiles",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			reports := profileReports()
			return printReport(c.OutOrStdout(), opts.Format, reports, profilesText(reports))
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// CheckOptions defines flags for the check subcommand.
type CheckOptions struct {
	Features featureList  `flag:"feature" flagshort:"f" flagdescr:"Features to check (see available features above)" flagrequired:"true" flagcustom:"true"`
	Variant  string       `flag:"variant" flagdescr:"MPI variant to check against (default: probe)"`
	Arch     string       `flag:"arch" flagdescr:"Target architecture in GOARCH notation (default $GOARCH or host)"`
	Format   outputFormat `flag:"format" flagshort:"F" flagdescr:"Output format (text, json, yaml)" flagcustom:"true"`
}

func (o *CheckOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *CheckOptions) DefineFeatures(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *CheckOptions) DecodeFeatures(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseFeatureList(s)
}

func (o *CheckOptions) CompleteFeatures(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFeatures(toComplete)
}

func (o *CheckOptions) DefineFormat(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	return defineFormat(fieldValue, descr)
}

func (o *CheckOptions) DecodeFormat(input any) (any, error) {
	return decodeFormat(input)
}

// guardInput resolves the variant and architecture the guard runs against.
func (o *CheckOptions) guardInput(ctx context.Context, probe func(context.Context) (*mpiprobe.Library, error)) mpisys.GuardInput {
	in := mpisys.GuardInput{Variant: o.Variant, Arch: o.Arch, Features: o.Features}
	if in.Arch == "" {
		in.Arch = os.Getenv(mpisys.EnvTargetArch)
	}
	if in.Arch == "" {
		in.Arch = runtime.GOARCH
	}
	if in.Variant == "" && probe != nil {
		if lib, err := probe(ctx); err == nil {
			in.Variant = lib.Version
		}
	}
	return in
}

// checkReport is the serialized outcome of a guard check.
type checkReport struct {
	OK      bool   `json:"ok" yaml:"ok"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
	Arch    string `json:"arch" yaml:"arch"`
	Feature string `json:"feature,omitempty" yaml:"feature,omitempty"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
	DocURL  string `json:"doc_url,omitempty" yaml:"doc_url,omitempty"`
}

func runCheck(in mpisys.GuardInput) (checkReport, error) {
	report := checkReport{OK: true, Variant: in.Variant, Arch: in.Arch}
	_, err := mpisys.CheckCompatibility(in)
	if err == nil {
		return report, nil
	}
	var ce *mpisys.CompatibilityError
	if !errors.As(err, &ce) {
		return report, err
	}
	report.OK = false
	report.Feature = ce.Feature.String()
	report.Reason = ce.Reason
	report.DocURL = ce.DocURL
	return report, err
}

func checkCmd() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check requested features against the MPI variant and target",
		Long:  checkLongDescription(),
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if len(opts.Features) == 0 {
				return fmt.Errorf("no features specified")
			}

			report, err := runCheck(opts.guardInput(c.Context(), mpiprobe.Probe))
			if err != nil && report.OK {
				return err
			}

			text := "OK: all features compatible\n"
			if !report.OK {
				text = fmt.Sprintf("FAIL: %s: %s (see: %s)\n", report.Feature, report.Reason, report.DocURL)
			}
			if perr := printReport(c.OutOrStdout(), opts.Format, report, text); perr != nil {
				return perr
			}
			if !report.OK {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// PreflightOptions defines flags for the preflight subcommand.
type PreflightOptions struct {
	Config    string       `flag:"config" flagshort:"c" flagdescr:"YAML config file; environment and flags override it"`
	SourceDir string       `flag:"source-dir" flagshort:"s" flagdescr:"Directory containing csrc/ (default current directory)"`
	Clang     string       `flag:"clang" flagdescr:"Preprocessor for binding generation (default $BINDGEN_CLANG or clang)"`
	Archiver  string       `flag:"archiver" flagdescr:"Static library archiver (default $AR)"`
	Format    outputFormat `flag:"format" flagshort:"F" flagdescr:"Output format (text, json, yaml)" flagcustom:"true"`
}

func (o *PreflightOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *PreflightOptions) DefineFormat(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	return defineFormat(fieldValue, descr)
}

func (o *PreflightOptions) DecodeFormat(input any) (any, error) {
	return decodeFormat(input)
}

// preflightReport is the serialized outcome of a preflight run.
type preflightReport struct {
	OK          bool   `json:"ok" yaml:"ok"`
	Profile     string `json:"profile" yaml:"profile"`
	Requirement string `json:"requirement,omitempty" yaml:"requirement,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func runPreflight(cfg mpisys.Config, ex mpisys.Executor) (preflightReport, error) {
	sig, err := mpisys.ReadSignal(cfg)
	if err != nil {
		return preflightReport{}, err
	}
	sel, err := mpisys.Select(sig)
	if err != nil {
		return preflightReport{}, err
	}

	report := preflightReport{OK: true, Profile: sel.Profile.String()}
	err = mpisys.Check(ex, mpisys.ProfileRequirements(sel, cfg))
	var pe *mpisys.PreflightError
	if errors.As(err, &pe) {
		report.OK = false
		report.Requirement = pe.Requirement
		report.Reason = pe.Reason
	}
	return report, err
}

func preflightCmd() *cobra.Command {
	opts := &PreflightOptions{}

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Verify the tools, headers and directories the selected profile needs",
		Long: `Select the profile from $CRAY and check that the host has everything the
build will use, without running any tool.
Exits with code 0 if all requirements are met, 1 if any are missing.`,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			bo := &BuildOptions{Config: opts.Config, SourceDir: opts.SourceDir, Clang: opts.Clang, Archiver: opts.Archiver}
			cfg, err := bo.config(os.LookupEnv)
			if err != nil {
				return err
			}

			report, err := runPreflight(cfg, mpisys.OSExecutor{})
			if err != nil && report.OK {
				return err
			}

			text := fmt.Sprintf("OK: %s requirements satisfied\n", report.Profile)
			if !report.OK {
				text = fmt.Sprintf("FAIL: %s: %s\n", report.Requirement, report.Reason)
			}
			if perr := printReport(c.OutOrStdout(), opts.Format, report, text); perr != nil {
				return perr
			}
			if !report.OK {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool version",
		RunE: func(c *cobra.Command, args []string) error {
			fmt.Fprintln(c.OutOrStdout(), versionString())
			return nil
		},
	}
}

func versionString() string {
	var b strings.Builder
	if version != "" {
		fmt.Fprintf(&b, "mpisys %s", version)
		if commit != "" {
			fmt.Fprintf(&b, " (%s)", commit)
		}
		if date != "" {
			fmt.Fprintf(&b, " built %s", date)
		}
	} else {
		b.WriteString("mpisys (dev)")
	}
	fmt.Fprintf(&b, "\nGo: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return b.String()
}

func printReport(w io.Writer, format outputFormat, v any, text string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, text)
		return err
	}
}

func availableFeatures() string {
	return strings.Join(featureNames(), ", ")
}

func featureNames() []string {
	names := make([]string, 0, len(featureIdentifierMap))
	for _, f := range featureValues {
		names = append(names, f.String())
	}
	return names
}

func checkLongDescription() string {
	return fmt.Sprintf(`Check that the requested features work with the MPI variant on the target
architecture. The variant is probed unless --variant is given.
Exits with code 0 if all features are compatible, 1 otherwise.

Available features:
%s`, formatWrappedList(featureNames(), "  ", 80))
}

func formatWrappedList(items []string, indent string, maxWidth int) string {
	if len(items) == 0 {
		return indent + "(none)"
	}

	lines := make([]string, 0, len(items))
	line := indent
	for i, item := range items {
		token := item
		if i < len(items)-1 {
			token += ", "
		}

		if len(line)+len(token) > maxWidth && line != indent {
			lines = append(lines, strings.TrimRight(line, " "))
			line = indent + token
			continue
		}

		line += token
	}

	lines = append(lines, strings.TrimRight(line, " "))
	return strings.Join(lines, "\n")
}

type featureList []mpisys.Feature

var featureValues = []mpisys.Feature{mpisys.FeatureUserOperations}

var featureIdentifierMap = func() map[mpisys.Feature][]string {
	ids := make(map[mpisys.Feature][]string, len(featureValues))
	for _, f := range featureValues {
		ids[f] = []string{f.String()}
	}
	return ids
}()

func (r *featureList) String() string {
	names := make([]string, 0, len(*r))
	for _, f := range *r {
		names = append(names, f.String())
	}

	return strings.Join(names, ",")
}

func (r *featureList) Set(input string) error {
	features, err := parseFeatureList(input)
	if err != nil {
		return err
	}

	*r = append(*r, features...)
	return nil
}

func (r *featureList) Type() string {
	return "feature"
}

func parseFeatureList(input string) (featureList, error) {
	if strings.TrimSpace(input) == "" {
		return featureList{}, nil
	}

	parts := strings.Split(input, ",")
	features := make(featureList, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}

		var feature mpisys.Feature
		enumValue := enumflag.New(&feature, "mpisys.Feature", featureIdentifierMap, enumflag.EnumCaseInsensitive)
		if err := enumValue.Set(name); err != nil {
			return nil, fmt.Errorf("unknown feature: %q (available: %s)", name, availableFeatures())
		}

		features = append(features, feature)
	}

	return features, nil
}

// completeFeatures completes the last element of a comma-separated list.
func completeFeatures(toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	current := toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
		current = toComplete[i+1:]
	}

	chosen := make(map[string]bool)
	for _, part := range strings.Split(prefix, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			chosen[part] = true
		}
	}

	var out []string
	for _, name := range featureNames() {
		if chosen[name] || !strings.HasPrefix(name, strings.ToLower(current)) {
			continue
		}
		out = append(out, prefix+name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
