//go:build !unix && !windows

package mpiprobe

import (
	"errors"
	"runtime"
)

func hostInfo() Host {
	return Host{Sysname: runtime.GOOS, Machine: runtime.GOARCH}
}

func msmpiInstallRoot() (string, error) {
	return "", errors.New("registry is only available on windows")
}
