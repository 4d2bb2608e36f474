//go:build unix

package mpiprobe

import (
	"errors"

	"golang.org/x/sys/unix"
)

// hostInfo reports the kernel identity from uname(2).
func hostInfo() Host {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return Host{}
	}
	return Host{
		Sysname: unix.ByteSliceToString(uname.Sysname[:]),
		Release: unix.ByteSliceToString(uname.Release[:]),
		Machine: unix.ByteSliceToString(uname.Machine[:]),
	}
}

func msmpiInstallRoot() (string, error) {
	return "", errors.New("registry is only available on windows")
}
