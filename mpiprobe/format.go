package mpiprobe

import (
	"fmt"
	"strings"
)

// String returns a human-readable summary of the probe result.
func (l *Library) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Host: %s %s (%s)\n", l.Host.Sysname, l.Host.Release, l.Host.Machine)
	fmt.Fprintf(&b, "Found by: %s\n", l.Source)
	version := l.Version
	if version == "" {
		version = "(unknown)"
	}
	fmt.Fprintf(&b, "Version: %s\n", version)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Libs: %s\n", strings.Join(l.Libs, ", "))
	writePaths(&b, "Lib paths", l.LibPaths)
	writePaths(&b, "Include paths", l.IncludePaths)
	return b.String()
}

func writePaths(b *strings.Builder, name string, paths []string) {
	fmt.Fprintf(b, "%s:\n", name)
	if len(paths) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, p := range paths {
		fmt.Fprintf(b, "  %s\n", p)
	}
}
