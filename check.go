package mpisys

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Check validates the given requirements and returns a *[PreflightError]
// for the first unsatisfied requirement, or nil if all are met.
// Tools are checked first, then headers, then directories.
func Check(ex Executor, required ...Requirement) error {
	if ex == nil {
		ex = OSExecutor{}
	}
	rs := normalizeRequirements(required)

	for _, t := range rs.tools {
		if _, err := t.Find(ex); err != nil {
			tried := strings.Join(append([]string{t.Name}, t.Alternatives...), ", ")
			return &PreflightError{
				Requirement: "tool " + t.Name,
				Reason:      fmt.Sprintf("%s not found in PATH (tried: %s)", t.Purpose, tried),
				Err:         err,
			}
		}
	}

	for _, h := range rs.headers {
		if len(h.Dirs) == 0 {
			return &PreflightError{
				Requirement: "header " + h.Name,
				Reason:      "no include directories configured",
			}
		}
		if !headerExists(h) {
			return &PreflightError{
				Requirement: "header " + h.Name,
				Reason:      fmt.Sprintf("not found in any of: %s", strings.Join(h.Dirs, ", ")),
			}
		}
	}

	for _, d := range rs.dirs {
		info, err := os.Stat(d.Path)
		switch {
		case err != nil:
			return &PreflightError{
				Requirement: "directory " + d.Path,
				Reason:      fmt.Sprintf("%s does not exist", d.Purpose),
				Err:         err,
			}
		case !info.IsDir():
			return &PreflightError{
				Requirement: "directory " + d.Path,
				Reason:      fmt.Sprintf("%s is not a directory", d.Purpose),
			}
		}
	}

	return nil
}

func headerExists(h HeaderRequirement) bool {
	for _, dir := range h.Dirs {
		if info, err := os.Stat(filepath.Join(dir, h.Name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
