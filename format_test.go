package mpisys

import (
	"strings"
	"testing"
)

func TestArtifacts_String(t *testing.T) {
	a := &Artifacts{
		Profile:     ProfileUnixOpenMPI,
		Library:     ProfileUnixOpenMPI.Library(),
		Compiler:    "mpicc",
		Variant:     "Open MPI 4.1.2",
		ShimLibrary: "/out/libmpishim.a",
		Directives: []Directive{
			{Kind: DirectiveLinkSearch, Value: "/out"},
			{Kind: DirectiveLinkLib, Value: "mpi"},
		},
		BindingsPath: "/out/mpisys_bindings.go",
	}

	got := a.String()
	for _, want := range []string{
		"Profile: unix-openmpi\n",
		"Compiler: mpicc\n",
		"Probed MPI: Open MPI 4.1.2\n",
		"  Libs:\n    mpi\n",
		"  Version: unknown\n",
		"  Shim library: /out/libmpishim.a\n",
		"  Bindings: /out/mpisys_bindings.go\n",
		"Directives:\n  mpisys:link-search=native=/out\n  mpisys:link-lib=mpi\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q:\n%s", want, got)
		}
	}

	a.Variant = ""
	if strings.Contains(a.String(), "Probed MPI") {
		t.Error("String() shows a probe line without a variant")
	}
}

func TestLibraryProfile_String(t *testing.T) {
	got := LibraryProfile{}.String()
	for _, want := range []string{"  Libs: (none)\n", "  Lib paths: (none)\n", "  Include paths: (none)\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q:\n%s", want, got)
		}
	}
}
