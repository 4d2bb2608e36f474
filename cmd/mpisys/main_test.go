package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leodido/mpisys"
	"github.com/leodido/mpisys/mpiprobe"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func TestParseFeatureList_CaseInsensitive(t *testing.T) {
	got, err := parseFeatureList(" User-Operations, ")
	if err != nil {
		t.Fatalf("parseFeatureList() error = %v", err)
	}

	want := featureList{mpisys.FeatureUserOperations}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseFeatureList_UnknownFeature(t *testing.T) {
	_, err := parseFeatureList("ciao")
	if err == nil {
		t.Fatal("parseFeatureList(ciao) expected error")
	}

	msg := err.Error()
	if !strings.Contains(msg, `unknown feature: "ciao"`) {
		t.Fatalf("error %q missing unknown feature context", msg)
	}
	if !strings.Contains(msg, "available: user-operations") {
		t.Fatalf("error %q missing available features", msg)
	}
}

func TestFeatureListString(t *testing.T) {
	r := featureList{mpisys.FeatureUserOperations, mpisys.FeatureUserOperations}
	if got, want := r.String(), "user-operations,user-operations"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    outputFormat
		wantErr bool
	}{
		{"text", formatText, false},
		{"JSON", formatJSON, false},
		{" yaml ", formatYAML, false},
		{"xml", formatText, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("parseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logFormat
		wantErr bool
	}{
		{"text", logText, false},
		{" JSON ", logJSON, false},
		{"yaml", logText, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("parseLogFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildLogFormatRejectsYAML(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"build", "--log-format", "yaml"})
	if err := root.Execute(); err == nil {
		t.Fatal("build --log-format yaml succeeded, want error")
	}
}

func TestCheckLongDescription_UsesFeatureNames(t *testing.T) {
	desc := checkLongDescription()
	if !strings.Contains(desc, "Available features:") {
		t.Fatalf("checkLongDescription() missing header: %q", desc)
	}
	for _, name := range featureNames() {
		if !strings.Contains(desc, name) {
			t.Fatalf("checkLongDescription() missing feature %q", name)
		}
	}
}

func TestCompleteFeatures(t *testing.T) {
	t.Run("empty input returns feature candidates", func(t *testing.T) {
		got, directive := completeFeatures("")
		if len(got) == 0 || got[0] != featureNames()[0] {
			t.Fatalf("completeFeatures(\"\") = %v", got)
		}
		if directive != cobra.ShellCompDirectiveNoFileComp|cobra.ShellCompDirectiveNoSpace {
			t.Fatalf("directive = %v", directive)
		}
	})

	t.Run("prefix filter is case-insensitive", func(t *testing.T) {
		got, _ := completeFeatures("USER")
		if len(got) != 1 || got[0] != "user-operations" {
			t.Fatalf("completeFeatures(USER) = %v", got)
		}
	})

	t.Run("already chosen features are not suggested again", func(t *testing.T) {
		got, _ := completeFeatures("user-operations,")
		if len(got) != 0 {
			t.Fatalf("completeFeatures() = %v, want none", got)
		}
	})
}

func TestFormatWrappedList(t *testing.T) {
	if got := formatWrappedList(nil, "  ", 80); got != "  (none)" {
		t.Fatalf("formatWrappedList(nil) = %q", got)
	}
	got := formatWrappedList([]string{"aaaa", "bbbb", "cccc"}, "  ", 12)
	if want := "  aaaa,\n  bbbb, cccc"; got != want {
		t.Fatalf("formatWrappedList() = %q, want %q", got, want)
	}
}

func TestBuildOptionsConfigLayering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mpisys.yaml")
	content := "cray: \"0\"\nout_dir: /from/file\npackage: fromfile\nfeatures: [user-operations]\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := &BuildOptions{Config: file, Package: "fromflag"}
	env := map[string]string{"CRAY": "1", "OUT_DIR": "/from/env"}
	cfg, err := opts.config(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("config() error = %v", err)
	}

	if cfg.Signal.Value != "1" {
		t.Fatalf("Signal = %q, want environment value", cfg.Signal.Value)
	}
	if cfg.OutDir != "/from/env" {
		t.Fatalf("OutDir = %q, want environment value", cfg.OutDir)
	}
	if cfg.Package != "fromflag" {
		t.Fatalf("Package = %q, want flag value", cfg.Package)
	}
	if cfg.SourceDir != "." {
		t.Fatalf("SourceDir = %q, want default", cfg.SourceDir)
	}
	if !cfg.HasFeature(mpisys.FeatureUserOperations) || len(cfg.Features) != 1 {
		t.Fatalf("Features = %v, want [user-operations]", cfg.Features)
	}
}

func TestBuildOptionsConfig_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	opts := &BuildOptions{Config: missing}
	_, err := opts.config(func(string) (string, bool) { return "", false })

	var ce *mpisys.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("config() error = %v, want ConfigError wrapping os.ErrNotExist", err)
	}
}

func TestBuildOptionsConfig_UnrecognizedFeatureEnv(t *testing.T) {
	opts := &BuildOptions{}
	env := map[string]string{mpisys.EnvUserOperations: "enabled"}
	_, err := opts.config(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if !errors.Is(err, mpisys.ErrUnrecognizedValue) {
		t.Fatalf("config() error = %v, want ErrUnrecognizedValue", err)
	}
}

func TestCheckOptionsGuardInput(t *testing.T) {
	t.Setenv(mpisys.EnvTargetArch, "386")
	probe := func(context.Context) (*mpiprobe.Library, error) {
		return &mpiprobe.Library{Version: mpiprobe.VariantMSMPI}, nil
	}

	opts := &CheckOptions{Features: featureList{mpisys.FeatureUserOperations}}
	in := opts.guardInput(context.Background(), probe)
	if in.Variant != mpiprobe.VariantMSMPI || in.Arch != "386" {
		t.Fatalf("guardInput() = %+v", in)
	}

	opts.Variant = "Open MPI 4.1.2"
	opts.Arch = "amd64"
	in = opts.guardInput(context.Background(), probe)
	if in.Variant != "Open MPI 4.1.2" || in.Arch != "amd64" {
		t.Fatalf("guardInput() = %+v, want flags to win", in)
	}

	failing := func(context.Context) (*mpiprobe.Library, error) { return nil, errors.New("none") }
	opts.Variant = ""
	in = opts.guardInput(context.Background(), failing)
	if in.Variant != "" {
		t.Fatalf("guardInput() variant = %q, want empty on probe failure", in.Variant)
	}
}

func TestRunCheck(t *testing.T) {
	report, err := runCheck(mpisys.GuardInput{
		Variant:  mpisys.VariantMSMPI,
		Arch:     "386",
		Features: []mpisys.Feature{mpisys.FeatureUserOperations},
	})
	if err == nil || report.OK {
		t.Fatalf("runCheck() = %+v, %v, want rejection", report, err)
	}
	if report.Feature != "user-operations" || report.DocURL == "" {
		t.Fatalf("runCheck() report = %+v", report)
	}

	report, err = runCheck(mpisys.GuardInput{
		Variant:  mpisys.VariantMSMPI,
		Arch:     "amd64",
		Features: []mpisys.Feature{mpisys.FeatureUserOperations},
	})
	if err != nil || !report.OK {
		t.Fatalf("runCheck() = %+v, %v, want ok", report, err)
	}
}

func TestPrintReport(t *testing.T) {
	reports := profileReports()
	if len(reports) != len(mpisys.Profiles()) {
		t.Fatalf("profileReports() = %d entries, want %d", len(reports), len(mpisys.Profiles()))
	}

	var buf bytes.Buffer
	if err := printReport(&buf, formatJSON, reports, ""); err != nil {
		t.Fatalf("printReport(json) error = %v", err)
	}
	var decoded []profileReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not decode: %v", err)
	}
	if decoded[0].Name != "unix-openmpi" || decoded[0].Compiler != "mpicc" {
		t.Fatalf("decoded[0] = %+v", decoded[0])
	}

	buf.Reset()
	if err := printReport(&buf, formatYAML, reports, ""); err != nil {
		t.Fatalf("printReport(yaml) error = %v", err)
	}
	var fromYAML []profileReport
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml output does not decode: %v", err)
	}
	if fromYAML[1].Name != "archer2-cray-mpich" {
		t.Fatalf("fromYAML[1] = %+v", fromYAML[1])
	}

	buf.Reset()
	text := profilesText(reports)
	if err := printReport(&buf, formatText, reports, text); err != nil {
		t.Fatalf("printReport(text) error = %v", err)
	}
	if !strings.Contains(buf.String(), "archer2-cray-mpich (compiler: cc)") {
		t.Fatalf("text output = %q", buf.String())
	}
}

func TestVersionString(t *testing.T) {
	if got := versionString(); !strings.HasPrefix(got, "mpisys (dev)\nGo: ") {
		t.Fatalf("versionString() = %q", got)
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"build", "probe", "profiles", "check", "preflight", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

// pathExecutor resolves only the listed tools.
type pathExecutor map[string]bool

func (p pathExecutor) LookPath(name string) (string, error) {
	if p[name] {
		return "/usr/bin/" + name, nil
	}
	return "", mpisys.ErrToolNotFound
}

func (pathExecutor) Execute(context.Context, mpisys.Command) (mpisys.Result, error) {
	return mpisys.Result{}, errors.New("not expected")
}

func TestRunPreflight(t *testing.T) {
	cfg := mpisys.Config{Signal: mpisys.RawValue{Value: "0", Set: true}, SourceDir: t.TempDir()}

	report, err := runPreflight(cfg, pathExecutor{"ar": true, "cc": true})
	if err == nil || report.OK {
		t.Fatalf("runPreflight() = %+v, %v, want missing compiler", report, err)
	}
	if report.Profile != "unix-openmpi" || report.Requirement != "tool mpicc" {
		t.Fatalf("runPreflight() report = %+v", report)
	}

	_, err = runPreflight(mpisys.Config{Signal: mpisys.RawValue{Value: "2", Set: true}}, pathExecutor{})
	if !errors.Is(err, mpisys.ErrUnrecognizedValue) {
		t.Fatalf("runPreflight() error = %v, want unrecognized signal", err)
	}
}
