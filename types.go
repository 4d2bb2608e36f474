package mpisys

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingVariable is wrapped by a [ConfigError] when a required
	// environment variable is not set.
	ErrMissingVariable = errors.New("required variable not set")

	// ErrUnrecognizedValue is wrapped by a [ConfigError] when a variable
	// holds a value outside of its recognized set.
	ErrUnrecognizedValue = errors.New("unrecognized value")

	// ErrInvalidProfile is wrapped by a [ConfigError] when a library profile
	// is missing one of its mandatory fields.
	ErrInvalidProfile = errors.New("invalid library profile")

	// ErrToolNotFound is wrapped by a [ToolchainError] when an executable
	// cannot be located in PATH.
	ErrToolNotFound = errors.New("tool not found")
)

// ConfigError reports a missing or unrecognized configuration input.
type ConfigError struct {
	Variable string
	Value    string
	Err      error
}

func (e *ConfigError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingVariable):
		return fmt.Sprintf("configuration: $%s is not set", e.Variable)
	case errors.Is(e.Err, ErrUnrecognizedValue):
		return fmt.Sprintf("configuration: $%s has unrecognized value %q", e.Variable, e.Value)
	case e.Value != "":
		return fmt.Sprintf("configuration: %s %q: %v", e.Variable, e.Value, e.Err)
	default:
		return fmt.Sprintf("configuration: %s: %v", e.Variable, e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToolchainError reports a failure of an external build tool.
//
// Output holds whatever the tool wrote to stderr and is rendered verbatim,
// since it is usually the only useful diagnostic.
type ToolchainError struct {
	Op     string
	Tool   string
	Output string
	Err    error
}

func (e *ToolchainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Op)
	if e.Tool != "" {
		fmt.Fprintf(&b, " (%s)", e.Tool)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimRight(e.Output, "\n"); out != "" {
		fmt.Fprintf(&b, "\n\n%s", out)
	}
	return b.String()
}

func (e *ToolchainError) Unwrap() error {
	return e.Err
}

// CompatibilityError is returned by [CheckCompatibility] when the requested
// feature cannot work with the detected MPI implementation on the target.
type CompatibilityError struct {
	Variant string
	Arch    string
	Feature Feature
	Reason  string
	DocURL  string
}

func (e *CompatibilityError) Error() string {
	msg := fmt.Sprintf("feature %q is not supported for %s on %s: %s", e.Feature, e.Variant, e.Arch, e.Reason)
	if e.DocURL != "" {
		msg += " (see: " + e.DocURL + ")"
	}
	return msg
}

// Feature is an optional capability that the build can request.
type Feature int

const (
	// FeatureUserOperations enables user-defined reduction operations.
	FeatureUserOperations Feature = iota
)

var featureNames = map[Feature]string{
	FeatureUserOperations: "user-operations",
}

func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Feature(%d)", f)
}

// GuardState is the outcome of the feature compatibility guard.
type GuardState int

const (
	// GuardAllowed means the build may proceed.
	GuardAllowed GuardState = iota
	// GuardRejected means the build must abort.
	GuardRejected
)

func (s GuardState) String() string {
	switch s {
	case GuardAllowed:
		return "allowed"
	case GuardRejected:
		return "rejected"
	default:
		return fmt.Sprintf("GuardState(%d)", s)
	}
}

// PreflightError is returned by [Check] for the first unmet requirement.
type PreflightError struct {
	Requirement string
	Reason      string
	Err         error
}

func (e *PreflightError) Error() string {
	msg := fmt.Sprintf("requirement %s not met: %s", e.Requirement, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}
