package mpisys

// VariantMSMPI is the version string the MPI probe reports for Microsoft MPI.
const VariantMSMPI = "MS-MPI"

// GuardInput carries what the compatibility guard looks at.
type GuardInput struct {
	// Variant is the library identity reported by the MPI probe.
	Variant string
	// Features are the requested optional capabilities.
	Features []Feature
	// Arch is the target CPU architecture in GOARCH notation.
	Arch string
}

// incompatibility is one known-bad {variant, arch, feature} combination.
type incompatibility struct {
	variant string
	arch    string
	feature Feature
	reason  string
	docURL  string
}

var incompatibilities = []incompatibility{
	{
		variant: VariantMSMPI,
		arch:    "386",
		feature: FeatureUserOperations,
		reason:  "user-defined operations need a calling convention MS-MPI does not provide on 32-bit Windows",
		docURL:  "https://github.com/rsmpi/rsmpi/issues/97",
	},
}

// CheckCompatibility returns [GuardRejected] and a *[CompatibilityError] for
// the first known-incompatible combination in in, or [GuardAllowed] and nil.
func CheckCompatibility(in GuardInput) (GuardState, error) {
	for _, bad := range incompatibilities {
		if in.Variant != bad.variant || in.Arch != bad.arch {
			continue
		}
		for _, f := range in.Features {
			if f != bad.feature {
				continue
			}
			return GuardRejected, &CompatibilityError{
				Variant: bad.variant,
				Arch:    bad.arch,
				Feature: bad.feature,
				Reason:  bad.reason,
				DocURL:  bad.docURL,
			}
		}
	}
	return GuardAllowed, nil
}

// VariantCfg returns the conditional-compilation name implied by a probed
// variant, or "" when the variant needs none.
func VariantCfg(variant string) string {
	if variant == VariantMSMPI {
		return "msmpi"
	}
	return ""
}
