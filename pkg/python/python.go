// pkg/python/python.go - interpreter validation and version/width probing

package python

import (
	"bufio"
	"context"
	"debug/pe"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

var (
	// ErrMissingInterpreter is returned when the interpreter path is unusable.
	ErrMissingInterpreter = errors.New("missing python interpreter")
	// ErrUnsupportedVersion is returned for an interpreter older than required.
	ErrUnsupportedVersion = errors.New("unsupported python version")
)

var (
	namePattern    = regexp.MustCompile(`(?i)^python(3(\.\d+)?)?(\.exe)?$`)
	versionPattern = regexp.MustCompile(`[0-9]+\.[0-9]+(\.[0-9]+)?`)
)

const widthProbe = "import struct; print(struct.calcsize('P') * 8)"

// Interpreter describes a probed python executable.
type Interpreter struct {
	Path    string
	Version string
	Bits    int
}

// Target returns the wheel target matching the interpreter.
func (i Interpreter) Target() (wheel.Target, error) {
	return wheel.TargetFromVersion(i.Version, i.Bits)
}

func (i Interpreter) String() string {
	return fmt.Sprintf("%s (%s, %dbit)", i.Version, i.Path, i.Bits)
}

// Validate checks that path is an existing regular file named like a
// python executable.
func Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no path given", ErrMissingInterpreter)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingInterpreter, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a file", ErrMissingInterpreter, path)
	}
	if !namePattern.MatchString(baseName(path)) {
		return fmt.Errorf("%w: %s is not a python executable", ErrMissingInterpreter, path)
	}
	return nil
}

// baseName handles both separators so Windows paths validate on any host.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Probe validates path and determines its version and pointer width.
// The version comes from NEWS.txt next to the executable when present,
// otherwise from "--version". The width is read from the PE header and
// falls back to asking the interpreter.
func Probe(ctx context.Context, cmd scripts.Commander, path string) (Interpreter, error) {
	if err := Validate(path); err != nil {
		return Interpreter{}, err
	}
	in := Interpreter{Path: path}

	in.Version = VersionFromNews(filepath.Dir(path))
	if in.Version == "" {
		out, err := cmd.Output(ctx, "", path, "--version")
		if err != nil {
			return in, fmt.Errorf("%w: %v", ErrMissingInterpreter, err)
		}
		in.Version = versionPattern.FindString(out)
	}
	if in.Version == "" {
		return in, fmt.Errorf("%w: cannot determine version of %s", ErrMissingInterpreter, path)
	}

	bits, err := BitsFromPE(path)
	if err != nil {
		out, perr := cmd.Output(ctx, "", path, "-c", widthProbe)
		if perr != nil {
			return in, fmt.Errorf("%w: %v", ErrMissingInterpreter, perr)
		}
		bits, err = strconv.Atoi(strings.TrimSpace(out))
		if err != nil {
			return in, fmt.Errorf("%w: unexpected width %q", ErrMissingInterpreter, strings.TrimSpace(out))
		}
	}
	in.Bits = bits

	logging.Info("Probed python interpreter", "path", path, "version", in.Version, "bits", in.Bits)
	return in, nil
}

// VersionFromNews reads the version from the "What's New" heading of
// NEWS.txt in dir. It returns "" when there is none.
func VersionFromNews(dir string) string {
	f, err := os.Open(filepath.Join(dir, "NEWS.txt"))
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "What's New") {
			if v := versionPattern.FindString(line); v != "" {
				return v
			}
		}
	}
	return ""
}

// BitsFromPE returns 32 or 64 from the machine field of a Windows executable.
func BitsFromPE(path string) (int, error) {
	f, err := pe.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch f.FileHeader.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64, pe.IMAGE_FILE_MACHINE_ARM64:
		return 64, nil
	case pe.IMAGE_FILE_MACHINE_I386:
		return 32, nil
	}
	return 0, fmt.Errorf("unknown machine type 0x%x", f.FileHeader.Machine)
}

// CheckMinimum returns ErrUnsupportedVersion when v is older than min.
// An empty min accepts any version.
func CheckMinimum(v, min string) error {
	if min == "" {
		return nil
	}
	got, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	want, err := version.NewVersion(min)
	if err != nil {
		return fmt.Errorf("invalid minimum python version %q: %w", min, err)
	}
	if got.LessThan(want) {
		return fmt.Errorf("%w: %s is older than %s", ErrUnsupportedVersion, v, min)
	}
	return nil
}
