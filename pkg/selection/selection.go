// pkg/selection/selection.go - plugin selections given as name=version on the command line

package selection

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

var (
	// ErrUnknownPlugin is returned for a plugin not offered by the index or catalog.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrUnknownVersion is returned for a version the index does not carry.
	ErrUnknownVersion = errors.New("unknown plugin version")
)

// Selection maps plugin name to version. An empty version means the
// default branch or the latest wheel.
type Selection map[string]string

// Names returns the selected plugin names in sorted order.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// String renders the selection as name=version pairs.
func (s Selection) String() string {
	parts := make([]string, 0, len(s))
	for _, n := range s.Names() {
		if v := s[n]; v != "" {
			parts = append(parts, n+"="+v)
		} else {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ",")
}

// Parse reads one "name" or "name=version" argument.
func Parse(arg string) (name, version string, err error) {
	arg = strings.TrimSpace(arg)
	name, version, _ = strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" {
		return "", "", fmt.Errorf("invalid plugin selection %q", arg)
	}
	return name, version, nil
}

// ParseAll builds a Selection from several arguments. Later arguments
// for the same plugin replace earlier ones.
func ParseAll(args []string) (Selection, error) {
	sel := Selection{}
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			continue
		}
		name, version, err := Parse(a)
		if err != nil {
			return nil, err
		}
		sel[name] = version
	}
	return sel, nil
}

// Source answers which plugins and versions exist. *wheel.Index satisfies it.
type Source interface {
	Has(name string) bool
	Versions(name string) []string
}

// Validate checks every selected plugin against src. A nil src accepts anything.
func (s Selection) Validate(src Source) error {
	if src == nil {
		return nil
	}
	for _, name := range s.Names() {
		if !src.Has(name) {
			return fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
		}
		v := s[name]
		if v == "" {
			continue
		}
		found := false
		for _, known := range src.Versions(name) {
			if known == v {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s %s", ErrUnknownVersion, name, v)
		}
	}
	return nil
}

// Catalog is a plain list of known plugin names without versions.
type Catalog []string

func (c Catalog) Has(name string) bool {
	for _, p := range c {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// Versions is always empty for a catalog, so any pinned version is rejected.
func (c Catalog) Versions(string) []string { return nil }

// Flag collects repeated --plugin arguments.
type Flag struct {
	values []string
}

// RegisterFlags registers the --plugin flag on fs, or on the global
// command line when fs is nil.
func (f *Flag) RegisterFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	fs.StringArrayVarP(&f.values, "plugin", "p", nil,
		"Install the given plugin, as name or name=version. Can be repeated.")
}

// Set assigns the raw values programmatically.
func (f *Flag) Set(values []string) { f.values = values }

// HasSelection reports whether any --plugin was given.
func (f *Flag) HasSelection() bool { return len(f.values) > 0 }

// Selection parses the collected values.
func (f *Flag) Selection() (Selection, error) {
	sel, err := ParseAll(f.values)
	if err != nil {
		return nil, err
	}
	if len(sel) > 0 {
		logging.Debug("Plugin selection from command line", "plugins", sel.String())
	}
	return sel, nil
}
