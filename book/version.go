package book

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is DocBook DTD version.
type Version struct {
	Major, Minor int
}

func ParseVersion(s string) (Version, error) {
	var (
		v   Version
		err error
	)
	parts := strings.Split(strings.TrimSpace(s), ".")
	if v.Major, err = strconv.Atoi(parts[0]); err != nil {
		return Version{}, fmt.Errorf("bad DocBook version %q: %w", s, err)
	}
	if len(parts) >= 2 {
		if v.Minor, err = strconv.Atoi(parts[1]); err != nil {
			return Version{}, fmt.Errorf("bad DocBook version %q: %w", s, err)
		}
	}
	return v, nil
}

// AtLeast reports whether version is greater or equal to major.minor.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// Namespaced reports whether documents of this version use DocBook XML
// namespace.
func (v Version) Namespaced() bool {
	return v.Major >= 5
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
