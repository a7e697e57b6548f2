package kernel

import (
	"fmt"
	"strconv"
)

type Version struct {
	Kernel int
	Major  int
	Minor  int
	Flavor string
}

func (v Version) String() string {
	s := strconv.Itoa(v.Kernel) + "." + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	return s + v.Flavor
}

// AtLeast reports whether v is k.major.minor or newer.
func (v Version) AtLeast(k, major, minor int) bool {
	return Compare(v, Version{Kernel: k, Major: major, Minor: minor}) >= 0
}

func Compare(a, b Version) int {
	if a.Kernel > b.Kernel {
		return 1
	} else if a.Kernel < b.Kernel {
		return -1
	}

	if a.Major > b.Major {
		return 1
	} else if a.Major < b.Major {
		return -1
	}

	if a.Minor > b.Minor {
		return 1
	} else if a.Minor < b.Minor {
		return -1
	}

	return 0
}

// Parse reads a uname release string such as "6.8.0-45-generic".
func Parse(release string) (Version, error) {
	var (
		v       Version
		partial string
	)
	parsed, _ := fmt.Sscanf(release, "%d.%d%s", &v.Kernel, &v.Major, &partial)
	if parsed < 2 {
		return Version{}, fmt.Errorf("cannot parse kernel version: %s", release)
	}
	if parsed, _ = fmt.Sscanf(partial, ".%d%s", &v.Minor, &v.Flavor); parsed < 1 {
		v.Flavor = partial
	}
	return v, nil
}

func Check(k, major, minor int) (bool, error) {
	v, err := Get()
	if err != nil {
		return false, err
	}
	return v.AtLeast(k, major, minor), nil
}
