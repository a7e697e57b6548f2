//go:build linux

package kernel

import (
	"bytes"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	version    Version
	versionErr error
	versionOne sync.Once
)

// Get returns the running kernel version. The uname call happens once.
func Get() (Version, error) {
	versionOne.Do(func() {
		uts := unix.Utsname{}
		if versionErr = unix.Uname(&uts); versionErr != nil {
			return
		}
		release := uts.Release[:]
		if i := bytes.IndexByte(release, 0); i >= 0 {
			release = release[:i]
		}
		version, versionErr = Parse(string(release))
	})
	return version, versionErr
}
