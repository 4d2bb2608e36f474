package mpisys

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDirective_String(t *testing.T) {
	tests := []struct {
		d    Directive
		want string
	}{
		{Directive{Kind: DirectiveLinkSearch, Value: "/opt/lib"}, "mpisys:link-search=native=/opt/lib"},
		{Directive{Kind: DirectiveLinkLib, Value: "mpi"}, "mpisys:link-lib=mpi"},
		{Directive{Kind: DirectiveLinkStaticLib, Value: "mpishim"}, "mpisys:link-lib=static=mpishim"},
		{Directive{Kind: DirectiveCfg, Value: "msmpi"}, "mpisys:cfg=msmpi"},
		{Directive{Kind: DirectiveKind(8), Value: "x"}, "mpisys:unknown(8)=x"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLinkDirectives(t *testing.T) {
	lib := LibraryProfile{
		Libs:     []string{"mpi", "mpifort"},
		LibPaths: []string{"/a", "/does/not/exist"},
	}
	want := []Directive{
		{Kind: DirectiveLinkSearch, Value: "/a"},
		{Kind: DirectiveLinkSearch, Value: "/does/not/exist"},
		{Kind: DirectiveLinkLib, Value: "mpi"},
		{Kind: DirectiveLinkLib, Value: "mpifort"},
	}
	if got := LinkDirectives(lib); !reflect.DeepEqual(got, want) {
		t.Fatalf("LinkDirectives() = %v, want %v", got, want)
	}
}

func TestLinkDirectives_Cray(t *testing.T) {
	ds := LinkDirectives(ProfileArcher2CrayMPICH.Library())
	if len(ds) != 4 {
		t.Fatalf("len = %d, want 3 search paths and 1 lib", len(ds))
	}
	for _, d := range ds[:3] {
		if d.Kind != DirectiveLinkSearch {
			t.Fatalf("directive %v out of order", d)
		}
	}
	if ds[3] != (Directive{Kind: DirectiveLinkLib, Value: "mpi"}) {
		t.Fatalf("last directive = %v", ds[3])
	}
}

func TestEmitDirectives(t *testing.T) {
	var buf bytes.Buffer
	ds := []Directive{
		{Kind: DirectiveCfg, Value: "msmpi"},
		{Kind: DirectiveLinkLib, Value: "mpi"},
	}
	if err := EmitDirectives(&buf, ds); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "mpisys:cfg=msmpi\nmpisys:link-lib=mpi\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestEmitDirectives_WriteError(t *testing.T) {
	err := EmitDirectives(failingWriter{}, []Directive{{Kind: DirectiveLinkLib, Value: "mpi"}})
	if err == nil {
		t.Fatal("EmitDirectives() error = nil")
	}
}

func TestCgoLDFLAGS(t *testing.T) {
	ds := []Directive{
		{Kind: DirectiveCfg, Value: "msmpi"},
		{Kind: DirectiveLinkSearch, Value: "/out"},
		{Kind: DirectiveLinkStaticLib, Value: "mpishim"},
		{Kind: DirectiveLinkSearch, Value: "/usr/lib"},
		{Kind: DirectiveLinkLib, Value: "mpi"},
	}
	want := []string{"-L/out", "-lmpishim", "-L/usr/lib", "-lmpi"}
	if got := CgoLDFLAGS(ds); !reflect.DeepEqual(got, want) {
		t.Fatalf("CgoLDFLAGS() = %q, want %q", got, want)
	}
}

func TestDirective_JSON(t *testing.T) {
	data, err := json.Marshal([]Directive{{Kind: DirectiveLinkLib, Value: "mpi"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["mpisys:link-lib=mpi"]` {
		t.Fatalf("json = %s", data)
	}
}
