package mpisys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Shim source layout, relative to Config.SourceDir.
const (
	ShimName   = "mpishim"
	ShimSource = "csrc/mpishim.c"
	ShimHeader = "csrc/mpishim.h"
)

// ShimArtifact is the compiled shim and the toolchain that produced it.
type ShimArtifact struct {
	// Library is the path of the static library.
	Library string
	// Objects are the intermediate object files.
	Objects []string
	// Toolchain is the resolved compiler, kept for binding generation.
	Toolchain *Toolchain
	// Directives link the shim into the final artifact.
	Directives []Directive
}

// ShimCompiler compiles the C shim into a static library.
type ShimCompiler struct {
	// Sources are compiled in order. Defaults to [ShimSource].
	Sources []string
	// SourceDir is the root the sources are relative to.
	SourceDir string
	// OutDir receives objects and the archive.
	OutDir string
	// Archiver overrides the default archiver.
	Archiver string
	// Env is the base environment for every tool run.
	Env []string

	exec Executor
}

// NewShimCompiler returns a compiler for cfg that runs tools through ex.
func NewShimCompiler(cfg Config, ex Executor) *ShimCompiler {
	if ex == nil {
		ex = OSExecutor{}
	}
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}
	return &ShimCompiler{
		Sources:   []string{ShimSource},
		SourceDir: cfg.SourceDir,
		OutDir:    cfg.OutDir,
		Archiver:  cfg.Archiver,
		Env:       env,
		exec:      ex,
	}
}

// Compile builds the shim with the compiler and include paths of sel.
func (s *ShimCompiler) Compile(ctx context.Context, sel Selection) (*ShimArtifact, error) {
	tc, err := ResolveToolchain(s.exec, sel.Compiler, s.Env)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.OutDir, 0o755); err != nil {
		return nil, &ToolchainError{Op: "create output directory", Tool: s.OutDir, Err: err}
	}

	objects := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		obj, err := s.compileOne(ctx, tc, sel.Library.IncludePaths, src)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	lib, err := s.archive(ctx, tc, objects)
	if err != nil {
		return nil, err
	}

	return &ShimArtifact{
		Library:   lib,
		Objects:   objects,
		Toolchain: tc,
		Directives: []Directive{
			{Kind: DirectiveLinkSearch, Value: s.OutDir},
			{Kind: DirectiveLinkStaticLib, Value: ShimName},
		},
	}, nil
}

func (s *ShimCompiler) objectPath(tc *Toolchain, src string) string {
	ext := ".o"
	if tc.Family.msvcLike() {
		ext = ".obj"
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(s.OutDir, base+ext)
}

// compileArgs returns the compiler arguments for one translation unit.
func compileArgs(tc *Toolchain, includes []string, src, obj string) []string {
	if tc.Family.msvcLike() {
		args := []string{"/nologo", "/c", "/O2", "/MD"}
		for _, inc := range includes {
			args = append(args, "/I"+inc)
		}
		return append(args, "/Fo"+obj, src)
	}

	args := []string{"-c", "-O2", "-fPIC"}
	for _, inc := range includes {
		args = append(args, "-I"+inc)
	}
	return append(args, "-o", obj, src)
}

func (s *ShimCompiler) compileOne(ctx context.Context, tc *Toolchain, includes []string, src string) (string, error) {
	srcPath := src
	if !filepath.IsAbs(srcPath) {
		srcPath = filepath.Join(s.SourceDir, src)
	}
	obj := s.objectPath(tc, src)

	cmd := Command{
		Name: tc.Path,
		Args: compileArgs(tc, includes, srcPath, obj),
		Dir:  s.OutDir,
		Env:  tc.Env,
	}
	res, err := s.exec.Execute(ctx, cmd)
	if err != nil {
		return "", &ToolchainError{
			Op:     "compile " + filepath.Base(src),
			Tool:   tc.Name,
			Output: res.Output(),
			Err:    err,
		}
	}
	return obj, nil
}

// archiver returns the archiver executable and the library file name.
func (s *ShimCompiler) archiver(tc *Toolchain) (string, string) {
	if tc.Family.msvcLike() {
		tool := s.Archiver
		if tool == "" {
			tool = "lib"
		}
		return tool, ShimName + ".lib"
	}
	tool := s.Archiver
	if tool == "" {
		tool = "ar"
	}
	return tool, "lib" + ShimName + ".a"
}

func (s *ShimCompiler) archive(ctx context.Context, tc *Toolchain, objects []string) (string, error) {
	tool, name := s.archiver(tc)
	lib := filepath.Join(s.OutDir, name)

	path, err := s.exec.LookPath(tool)
	if err != nil {
		return "", &ToolchainError{Op: "resolve archiver", Tool: tool, Err: err}
	}

	// Stale members from an earlier build would otherwise survive.
	if err := os.Remove(lib); err != nil && !os.IsNotExist(err) {
		return "", &ToolchainError{Op: "remove stale archive", Tool: lib, Err: err}
	}

	var args []string
	if tc.Family.msvcLike() {
		args = append([]string{"/nologo", "/OUT:" + lib}, objects...)
	} else {
		args = append([]string{"crs", lib}, objects...)
	}

	res, err := s.exec.Execute(ctx, Command{Name: path, Args: args, Dir: s.OutDir, Env: tc.Env})
	if err != nil {
		return "", &ToolchainError{
			Op:     fmt.Sprintf("archive %s", name),
			Tool:   tool,
			Output: res.Output(),
			Err:    err,
		}
	}
	return lib, nil
}
