// pkg/wheel/wheel.go - wheel filename parsing and interpreter compatibility.

package wheel

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoArtifactFound is returned when no compatible wheel exists. Callers
// fall back to the textual requirement.
var ErrNoArtifactFound = errors.New("no artifact found")

// Artifact is a wheel file located in a store.
type Artifact struct {
	Filename string
	Path     string
	Name     string
	Version  string
	Build    string
	PyTag    string
	ABITag   string
	Platform string
}

// Target describes the interpreter wheels are installed into.
type Target struct {
	Tag  string // major and minor digits, e.g. "311"
	Bits int    // 32 or 64
}

func (t Target) String() string {
	return fmt.Sprintf("cp%s/%dbit", t.Tag, t.Bits)
}

// TargetFromVersion builds a Target from a version such as "3.11.4".
func TargetFromVersion(version string, bits int) (Target, error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) < 2 {
		return Target{}, fmt.Errorf("cannot derive interpreter tag from version %q", version)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return Target{}, fmt.Errorf("cannot derive interpreter tag from version %q", version)
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return Target{}, fmt.Errorf("cannot derive interpreter tag from version %q", version)
	}
	return Target{Tag: parts[0] + parts[1], Bits: bits}, nil
}

var normalizeRe = regexp.MustCompile(`[-_.]+`)

// NormalizeName folds a distribution name for comparison.
func NormalizeName(name string) string {
	return normalizeRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// ParseFilename splits name-version(-build)?-pytag-abitag-platform.whl.
func ParseFilename(filename string) (Artifact, error) {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if !strings.HasSuffix(strings.ToLower(base), ".whl") {
		return Artifact{}, fmt.Errorf("not a wheel file: %s", filename)
	}
	parts := strings.Split(base[:len(base)-len(".whl")], "-")

	a := Artifact{Filename: base, Path: filename}
	switch len(parts) {
	case 5:
		a.Name, a.Version, a.PyTag, a.ABITag, a.Platform = parts[0], parts[1], parts[2], parts[3], parts[4]
	case 6:
		a.Name, a.Version, a.Build, a.PyTag, a.ABITag, a.Platform = parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	default:
		return Artifact{}, fmt.Errorf("malformed wheel filename: %s", base)
	}
	return a, nil
}

// Universal reports a pure wheel usable by any interpreter.
func (a Artifact) Universal() bool {
	return hasTag(a.ABITag, "none") && hasTag(a.Platform, "any")
}

// Bits returns the pointer width encoded in the platform tag, or 0.
func (a Artifact) Bits() int {
	for _, p := range strings.Split(strings.ToLower(a.Platform), ".") {
		switch p {
		case "win_amd64":
			return 64
		case "win32":
			return 32
		}
	}
	return 0
}

// CompatibleWith reports whether the wheel can be installed into t.
func (a Artifact) CompatibleWith(t Target) bool {
	if a.Universal() {
		return true
	}
	if a.Bits() != t.Bits {
		return false
	}
	cp := "cp" + t.Tag
	if hasTag(a.ABITag, cp) || hasTag(a.PyTag, cp) {
		return true
	}
	if hasTag(a.ABITag, "abi3") {
		for _, py := range strings.Split(strings.ToLower(a.PyTag), ".") {
			if minor, ok := cp3Minor(py); ok {
				if target, ok := cp3Minor("cp" + t.Tag); ok && minor <= target {
					return true
				}
			}
		}
	}
	if hasTag(a.ABITag, "none") {
		for _, py := range strings.Split(strings.ToLower(a.PyTag), ".") {
			if py == "py3" {
				return true
			}
		}
	}
	return false
}

// cp3Minor returns 11 for "cp311".
func cp3Minor(tag string) (int, bool) {
	if !strings.HasPrefix(tag, "cp3") || len(tag) < 4 {
		return 0, false
	}
	n, err := strconv.Atoi(tag[3:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// hasTag matches one element of a compressed tag set such as "py2.py3".
func hasTag(set, tag string) bool {
	for _, s := range strings.Split(strings.ToLower(set), ".") {
		if s == tag {
			return true
		}
	}
	return false
}
