// pkg/wheel/index.go - plugin wheels by name and version.

package wheel

import (
	"sort"

	"github.com/hashicorp/go-version"
)

// indexEntry holds every build of one distribution. name is the first
// spelling seen in the store.
type indexEntry struct {
	name     string
	versions map[string][]Artifact
}

// Index maps normalized plugin name to version to the wheels built for it.
type Index struct {
	plugins map[string]*indexEntry
}

// BuildIndex indexes every wheel in the store by distribution name and
// version. Builds of one version keep the store's lexical order.
func BuildIndex(s *Store) (*Index, error) {
	artifacts, err := s.List()
	if err != nil {
		return nil, err
	}
	idx := &Index{plugins: make(map[string]*indexEntry)}
	for _, a := range artifacts {
		key := NormalizeName(a.Name)
		e := idx.plugins[key]
		if e == nil {
			e = &indexEntry{name: a.Name, versions: make(map[string][]Artifact)}
			idx.plugins[key] = e
		}
		e.versions[a.Version] = append(e.versions[a.Version], a)
	}
	return idx, nil
}

func (i *Index) entry(name string) *indexEntry {
	if i == nil {
		return nil
	}
	return i.plugins[NormalizeName(name)]
}

// Plugins returns the indexed names as spelled in the store, sorted.
func (i *Index) Plugins() []string {
	if i == nil {
		return nil
	}
	names := make([]string, 0, len(i.plugins))
	for _, e := range i.plugins {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is indexed. "sharktools-ctd-processing" and
// "SHARKtools_ctd_processing" are the same plugin.
func (i *Index) Has(name string) bool {
	return i.entry(name) != nil
}

// Versions returns the versions of name, oldest first. Versions that do
// not parse sort before the rest, lexically.
func (i *Index) Versions(name string) []string {
	e := i.entry(name)
	if e == nil {
		return []string{}
	}
	vs := make([]string, 0, len(e.versions))
	for v := range e.versions {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(a, b int) bool {
		va, errA := version.NewVersion(vs[a])
		vb, errB := version.NewVersion(vs[b])
		switch {
		case errA != nil && errB != nil:
			return vs[a] < vs[b]
		case errA != nil:
			return true
		case errB != nil:
			return false
		}
		return va.LessThan(vb)
	})
	return vs
}

// Latest returns the newest version of name, or "".
func (i *Index) Latest(name string) string {
	vs := i.Versions(name)
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

// Lookup returns the first build of name at ver that installs into t.
func (i *Index) Lookup(name, ver string, t Target) (Artifact, bool) {
	e := i.entry(name)
	if e == nil {
		return Artifact{}, false
	}
	for _, a := range e.versions[ver] {
		if a.CompatibleWith(t) {
			return a, true
		}
	}
	return Artifact{}, false
}

// LatestFor returns the newest version of name with a build for t.
func (i *Index) LatestFor(name string, t Target) (Artifact, bool) {
	vs := i.Versions(name)
	for n := len(vs) - 1; n >= 0; n-- {
		if a, ok := i.Lookup(name, vs[n], t); ok {
			return a, true
		}
	}
	return Artifact{}, false
}
