//go:build windows

package mpiprobe

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const msmpiKey = `SOFTWARE\Microsoft\MPI`

func hostInfo() Host {
	v := windows.RtlGetVersion()
	return Host{
		Sysname: "Windows",
		Release: fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber),
		Machine: runtime.GOARCH,
	}
}

// msmpiInstallRoot reads the runtime location the MS-MPI installer records.
func msmpiInstallRoot() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, msmpiKey, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("open HKLM\\%s: %w", msmpiKey, err)
	}
	defer k.Close()

	root, _, err := k.GetStringValue("InstallRoot")
	if err != nil {
		return "", fmt.Errorf("read HKLM\\%s\\InstallRoot: %w", msmpiKey, err)
	}
	return root, nil
}
