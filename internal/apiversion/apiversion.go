// Package apiversion reads the API version constants from the C++ header
// shipped with the SDK, so the documented release follows the code.
package apiversion

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

// Version is the major/minor pair declared in the header.
type Version struct {
	Major uint32
	Minor uint32
	// HasMinor is false when the header declares only versionMajor.
	HasMinor bool
}

// Release is the label Sphinx shows: the major number only.
func (v Version) Release() string { return strconv.FormatUint(uint64(v.Major), 10) }

// String renders "major.minor", or just the major number.
func (v Version) String() string {
	if !v.HasMinor {
		return v.Release()
	}
	return v.Release() + "." + strconv.FormatUint(uint64(v.Minor), 10)
}

// Matches declarations such as "const uint32_t versionMajor = 30;".
var constRe = regexp.MustCompile(`^\s*(?:static\s+)?(?:constexpr|const)\s+[\w:]+\s+(versionMajor|versionMinor)\s*=\s*(\d+)[uUlL]*\s*;`)

// ParseHeader scans r for the versionMajor and versionMinor constants.
func ParseHeader(r io.Reader) (Version, error) {
	var (
		v        Version
		hasMajor bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := constRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return Version{}, ferrors.WrapError(err, ferrors.CategoryValidation, "version constant out of range").
				WithContext("constant", m[1]).Build()
		}
		switch m[1] {
		case "versionMajor":
			v.Major, hasMajor = uint32(n), true
		case "versionMinor":
			v.Minor, v.HasMinor = uint32(n), true
		}
	}
	if err := sc.Err(); err != nil {
		return Version{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read version header").Build()
	}
	if !hasMajor {
		return Version{}, ferrors.ValidationError("version header does not declare versionMajor").Build()
	}
	return v, nil
}

// ParseFile is ParseHeader on a file path.
func ParseFile(path string) (Version, error) {
	f, err := os.Open(path)
	if err != nil {
		return Version{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open version header").
			WithContext("path", path).Build()
	}
	defer func() { _ = f.Close() }()

	v, err := ParseHeader(f)
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return Version{}, ce.WithContext("path", path)
		}
		return Version{}, err
	}
	return v, nil
}
