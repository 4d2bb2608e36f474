// Package mpisys builds the native MPI layer that Go bindings link against.
//
// A build selects one static library profile from an environment signal,
// compiles a small C shim with the profile's compiler wrapper, emits linker
// directives for the invoking harness and generates cgo bindings for the
// shim header and everything it includes.
//
// # API Model
//
// mpisys exposes three API families:
//   - [Build] for the full pipeline, driven by a [Config]
//   - [ReadSignal], [Select], [CheckCompatibility], [ShimCompiler] and
//     [GenerateBindings] for running single stages
//   - [Check] for pass/fail host readiness using [Requirement] items
//
// The pipeline never reads the process environment. [ConfigFromEnv] and
// [LoadConfigFile] build a [Config] once, at the edge.
//
// # Quick Build
//
//	cfg, err := mpisys.ConfigFromEnv(os.LookupEnv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	art, err := mpisys.Build(ctx, cfg)
//	if err != nil {
//	    var ce *mpisys.ConfigError
//	    if errors.As(err, &ce) {
//	        log.Fatalf("bad environment: %s", ce.Variable)
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(art)
//
// Directives are written to stdout as "mpisys:<key>=<value>" lines, and only
// once every stage has succeeded.
//
// # Profiles
//
// The signal variable (default CRAY) must hold "0" or "1":
//
//	0  unix-openmpi        mpicc
//	1  archer2-cray-mpich  cc
//
// Any other value, or an unset variable, fails before any tool runs.
//
// # Preflight
//
// Check that the host can run a build for the selected profile:
//
//	sel, _ := mpisys.Select(mpisys.SignalGeneric)
//	if err := mpisys.Check(nil, mpisys.ProfileRequirements(sel, cfg)); err != nil {
//	    var pe *mpisys.PreflightError
//	    if errors.As(err, &pe) {
//	        log.Fatalf("%s: %s", pe.Requirement, pe.Reason)
//	    }
//	}
//
// # Feature Guard
//
// Optional features are rejected early on known-bad combinations, for
// example user-defined operations with MS-MPI on 32-bit targets:
//
//	_, err := mpisys.CheckCompatibility(mpisys.GuardInput{
//	    Variant:  mpisys.VariantMSMPI,
//	    Arch:     "386",
//	    Features: []mpisys.Feature{mpisys.FeatureUserOperations},
//	})
package mpisys
