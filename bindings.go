package mpisys

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/leodido/mpisys/bindgen"
	"github.com/leodido/mpisys/internal/logging"
)

// BindingsFile is the generated Go file, written under the output directory.
const BindingsFile = "mpisys_bindings.go"

// diagnosticsLimit caps tool output attached to log records.
const diagnosticsLimit = 2048

// BindingsRequest is the input of [GenerateBindings].
type BindingsRequest struct {
	// Selection supplies the profile include paths.
	Selection Selection
	// Toolchain is the compiler resolved by the shim stage. Its environment
	// feeds the include harvesters.
	Toolchain *Toolchain
	// Harvesters default to [DefaultHarvesters].
	Harvesters []IncludeHarvester

	// Header defaults to SourceDir/csrc/mpishim.h.
	Header    string
	SourceDir string
	OutDir    string

	// Clang overrides the preprocessor. "cc" and "gcc" are fallbacks.
	Clang      string
	Package    string
	// NoBuiltins drops compiler predefined macros and system typedefs,
	// which are bound by default.
	NoBuiltins bool
	// Allow selects additional system declarations by name.
	Allow *regexp.Regexp

	// Directives are rendered into the cgo LDFLAGS line.
	Directives []Directive

	Executor Executor
	Env      []string
	Logger   logging.Logger
}

func (r BindingsRequest) header() string {
	if r.Header != "" {
		return r.Header
	}
	return filepath.Join(r.SourceDir, ShimHeader)
}

// IncludeDirs returns the profile include paths followed by the harvested
// toolchain directories.
func (r BindingsRequest) IncludeDirs() []string {
	harvesters := r.Harvesters
	if harvesters == nil {
		harvesters = DefaultHarvesters
	}
	dirs := slices.Clone(r.Selection.Library.IncludePaths)
	return append(dirs, HarvestIncludes(r.Toolchain, harvesters)...)
}

// GenerateBindings preprocesses the shim header and writes Go bindings for its
// declarations. It returns the path of the generated file.
func GenerateBindings(ctx context.Context, req BindingsRequest) (string, error) {
	ex := req.Executor
	if ex == nil {
		ex = OSExecutor{}
	}
	log := req.Logger
	if log == nil {
		log = logging.Discard()
	}

	clang := req.Clang
	if clang == "" {
		clang = "clang"
	}
	tool, err := ToolRequirement{
		Name:         clang,
		Alternatives: []string{"cc", "gcc"},
		Purpose:      "bindings preprocessor",
	}.Find(ex)
	if err != nil {
		return "", err
	}

	header := req.header()
	includes := req.IncludeDirs()
	args := []string{"-E", "-dD"}
	for _, inc := range includes {
		args = append(args, "-I"+inc)
	}
	args = append(args, header)

	env := req.Env
	if req.Toolchain != nil {
		env = req.Toolchain.Env
	}
	log.Debug(ctx, "preprocessing header", "tool", tool, "header", header, "includes", len(includes))
	res, err := ex.Execute(ctx, Command{Name: tool, Args: args, Env: env})
	if err != nil {
		return "", &ToolchainError{
			Op:     "preprocess " + filepath.Base(header),
			Tool:   tool,
			Output: string(res.Stderr),
			Err:    err,
		}
	}

	if diag := bytes.TrimSpace(res.Stderr); len(diag) > 0 {
		log.Warn(ctx, "preprocessor diagnostics", "tool", tool, logging.Truncated("stderr", string(diag), diagnosticsLimit))
	}

	unit, err := bindgen.Parse(bytes.NewReader(res.Stdout))
	if err != nil {
		return "", &ToolchainError{Op: "parse " + filepath.Base(header), Tool: "bindgen", Err: err}
	}

	cflags := make([]string, 0, len(includes)+1)
	cflags = append(cflags, "-I"+filepath.Dir(header))
	for _, inc := range includes {
		cflags = append(cflags, "-I"+inc)
	}
	src, skipped, err := bindgen.Generate(unit, bindgen.Options{
		Package:      packageOrDefault(req.Package),
		Source:       filepath.ToSlash(filepath.Join(filepath.Base(filepath.Dir(header)), filepath.Base(header))),
		Headers:      []string{filepath.Base(header)},
		CFLAGS:       cflags,
		LDFLAGS:      CgoLDFLAGS(req.Directives),
		Allow:        req.Allow,
		EmitBuiltins: !req.NoBuiltins,
	})
	if err != nil {
		return "", &ToolchainError{Op: "generate bindings", Tool: "bindgen", Err: err}
	}
	for _, s := range skipped {
		log.Debug(ctx, "declaration not bound", "name", s.Name, "reason", s.Reason)
	}

	path := filepath.Join(req.OutDir, BindingsFile)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", &ToolchainError{Op: "write bindings", Tool: path, Err: err}
	}
	log.Info(ctx, "bindings written", "path", path, "declarations", len(unit.Decls), "skipped", len(skipped))
	return path, nil
}

func packageOrDefault(name string) string {
	if name == "" {
		return Config{}.packageName()
	}
	return name
}

// String summarizes the request for logs.
func (r BindingsRequest) String() string {
	return fmt.Sprintf("bindings(%s -> %s)", r.header(), filepath.Join(r.OutDir, BindingsFile))
}
