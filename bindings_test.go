package mpisys

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/leodido/mpisys/bindgen"
	"github.com/leodido/mpisys/internal/logging"
)

const preprocessedShim = `# 1 "csrc/mpishim.h"
# 1 "<built-in>" 1
#define __INT_MAX__ 0x7fffffff
# 1 "csrc/mpishim.h" 2
# 1 "/usr/include/stddef.h" 1 3 4
typedef long int ptrdiff_t;
# 2 "csrc/mpishim.h" 2
# 1 "/opt/mpi/include/mpi.h" 1
#define MPI_VERSION 3
#define MPI_UNDEFINED (-32766)
typedef struct ompi_communicator_t *MPI_Comm;
typedef ptrdiff_t MPI_Aint;
int MPI_Init(int *argc, char ***argv);
int MPI_Finalize(void);
int MPI_Pcontrol(const int level, ...);
# 3 "csrc/mpishim.h" 2
extern const MPI_Comm MPISHIM_COMM_WORLD;
`

func testBindingsRequest(t *testing.T, ex Executor) BindingsRequest {
	t.Helper()
	return BindingsRequest{
		Selection: testSelection("mpicc", "/opt/mpi/include"),
		Toolchain: &Toolchain{Name: "mpicc", Path: "/usr/bin/mpicc", Family: FamilyGNU, Env: []string{"PATH=/usr/bin"}},
		SourceDir: "/src",
		OutDir:    t.TempDir(),
		Directives: []Directive{
			{Kind: DirectiveLinkSearch, Value: "/out"},
			{Kind: DirectiveLinkStaticLib, Value: "mpishim"},
			{Kind: DirectiveLinkLib, Value: "mpi"},
		},
		Executor: ex,
	}
}

func TestGenerateBindings(t *testing.T) {
	ex := &fakeExecutor{preprocessed: preprocessedShim}
	req := testBindingsRequest(t, ex)

	path, err := GenerateBindings(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateBindings() error = %v", err)
	}
	if want := filepath.Join(req.OutDir, BindingsFile); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	runs := ex.commands()
	if len(runs) != 1 {
		t.Fatalf("commands = %v, want one preprocessor run", runs)
	}
	header := filepath.Join("/src", ShimHeader)
	wantArgs := []string{"-E", "-dD", "-I/opt/mpi/include", header}
	if runs[0].Name != "clang" || !reflect.DeepEqual(runs[0].Args, wantArgs) {
		t.Fatalf("preprocess = %v, want clang %q", runs[0], wantArgs)
	}
	if !reflect.DeepEqual(runs[0].Env, []string{"PATH=/usr/bin"}) {
		t.Fatalf("preprocess env = %q, want toolchain env", runs[0].Env)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	src := string(data)
	for _, want := range []string{
		"// Code generated by mpisys from csrc/mpishim.h. DO NOT EDIT.",
		"package mpisys",
		"#cgo CFLAGS: -I" + filepath.Dir(header) + " -I/opt/mpi/include\n",
		"#cgo LDFLAGS: -L/out -lmpishim -lmpi\n",
		`#include "mpishim.h"`,
		"MPI_Comm",
		"ptrdiff_t",
		"MPISHIM_COMM_WORLD",
		"func MPI_Init(",
		"func MPI_Finalize() C.int {",
		"MPI_Pcontrol: variadic",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("bindings missing %q", want)
		}
	}
	if !strings.Contains(src, "__INT_MAX__") {
		t.Error("bindings miss the compiler builtins")
	}
}

func TestGenerateBindings_NoBuiltins(t *testing.T) {
	req := testBindingsRequest(t, &fakeExecutor{preprocessed: preprocessedShim})
	req.NoBuiltins = true

	path, err := GenerateBindings(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "__INT_MAX__") {
		t.Fatal("bindings contain a compiler builtin with NoBuiltins set")
	}
	if !strings.Contains(string(data), "MPI_VERSION") {
		t.Fatal("NoBuiltins dropped a header macro")
	}
}

func TestGenerateBindings_QuotesSpacedIncludeDirs(t *testing.T) {
	ex := &fakeExecutor{preprocessed: preprocessedShim}
	req := testBindingsRequest(t, ex)
	req.SourceDir = "/work/my project"
	req.Selection = testSelection("cl", `C:\Program Files (x86)\Microsoft SDKs\MPI\Include`)
	req.Toolchain = &Toolchain{Name: "cl", Family: FamilyMSVC, Env: []string{`INCLUDE=C:\Program Files\VS\include`}}

	path, err := GenerateBindings(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	header := filepath.Join("/work/my project", ShimHeader)
	want := "#cgo CFLAGS: " + bindgen.QuoteFlags([]string{"-I" + filepath.Dir(header)}) + ` '-IC:\\Program Files (x86)\\Microsoft SDKs\\MPI\\Include' '-IC:\\Program Files\\VS\\include'` + "\n"
	if !strings.Contains(string(data), want) {
		t.Fatalf("bindings preamble missing %q:\n%s", want, data)
	}

	runs := ex.commands()
	if got := runs[0].Args[len(runs[0].Args)-1]; got != header {
		t.Fatalf("preprocessed header = %q, want unquoted %q", got, header)
	}
}

func TestGenerateBindings_Idempotent(t *testing.T) {
	ex := &fakeExecutor{preprocessed: preprocessedShim}
	req := testBindingsRequest(t, ex)

	path, err := GenerateBindings(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	if _, err := GenerateBindings(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Fatal("second run produced different bindings")
	}
}

func TestGenerateBindings_PreprocessorFallback(t *testing.T) {
	ex := &fakeExecutor{tools: []string{"gcc"}, preprocessed: preprocessedShim}
	if _, err := GenerateBindings(context.Background(), testBindingsRequest(t, ex)); err != nil {
		t.Fatal(err)
	}
	if runs := ex.commands(); runs[0].Name != "gcc" {
		t.Fatalf("preprocessor = %q, want gcc", runs[0].Name)
	}

	ex = &fakeExecutor{tools: []string{}}
	_, err := GenerateBindings(context.Background(), testBindingsRequest(t, ex))
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("GenerateBindings() error = %v, want ErrToolNotFound", err)
	}
}

func TestGenerateBindings_PreprocessFailure(t *testing.T) {
	ex := &fakeExecutor{fail: map[string]string{"clang": "mpishim.h:2:10: fatal error: 'mpi.h' file not found"}}
	req := testBindingsRequest(t, ex)

	_, err := GenerateBindings(context.Background(), req)
	var te *ToolchainError
	if !errors.As(err, &te) || !strings.Contains(te.Output, "'mpi.h' file not found") {
		t.Fatalf("GenerateBindings() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(req.OutDir, BindingsFile)); !os.IsNotExist(err) {
		t.Fatal("bindings written after a failed preprocess")
	}
}

func TestBindingsRequest_IncludeDirs(t *testing.T) {
	req := BindingsRequest{
		Selection: testSelection("cl", `C:\MPI\Include`),
		Toolchain: &Toolchain{Family: FamilyMSVC, Env: []string{`INCLUDE=C:\VS\include;C:\Kits\ucrt`}},
	}
	want := []string{`C:\MPI\Include`, `C:\VS\include`, `C:\Kits\ucrt`}
	if got := req.IncludeDirs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("IncludeDirs() = %q, want %q", got, want)
	}

	req.Harvesters = []IncludeHarvester{}
	if got := req.IncludeDirs(); !reflect.DeepEqual(got, want[:1]) {
		t.Fatalf("IncludeDirs() with no harvesters = %q", got)
	}
}

func TestGenerateBindings_LogsPreprocessorWarnings(t *testing.T) {
	ex := &fakeExecutor{
		preprocessed:     preprocessedShim,
		preprocessStderr: "mpi.h:12:9: warning: 'OMPI_DECLSPEC' macro redefined\n" + strings.Repeat("x", 4096),
	}
	var logs bytes.Buffer
	req := testBindingsRequest(t, ex)
	req.Logger = logging.New(slog.New(logging.NewHandler(&logs, logging.Options{})))

	if _, err := GenerateBindings(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "OMPI_DECLSPEC") {
		t.Fatalf("logs = %q, want preprocessor warning", out)
	}
	if !strings.Contains(out, "[truncated]") {
		t.Fatalf("logs = %q, want long output truncated", out)
	}
}
