// pkg/reconcile/reconcile.go - merge collected requirements into one install plan.

package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/manifest"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

// Resolver locates wheels by package name or by exact filename.
// *wheel.Store satisfies it.
type Resolver interface {
	Resolve(name string, t wheel.Target) (wheel.Artifact, error)
	Lookup(filename string) (wheel.Artifact, error)
}

// Input is everything the reconciler needs for one run.
type Input struct {
	Requirements []manifest.Requirement
	Directives   []manifest.Directive
	Local        []string // subprojects present in the tree
	Wheels       []string // configured wheel files, always installed; must fit Target
	Resolver     Resolver // nil disables artifact lookup
	Target       wheel.Target
	StagingDir   string
	InstallFirst []string
	VenvPath     string
	PythonPath   string
}

// Entry is one "pip install" argument.
type Entry struct {
	Name     string
	Line     string
	Artifact bool
}

// Plan is the reconciled install list.
type Plan struct {
	Skipped    []string // local packages never installed
	Staged     []string // wheel paths copied into the staging directory
	Missing    []string // #wheel packages without a compatible wheel
	Entries    []Entry
	Reinstall  []string
	VenvPath   string
	PythonPath string
}

// Lines returns the entry lines in install order.
func (p *Plan) Lines() []string {
	lines := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		lines = append(lines, e.Line)
	}
	return lines
}

type group struct {
	key      string
	name     string
	lines    []string
	wheelRef string
	wheelRaw string
	artifact *wheel.Artifact
}

func (g *group) addLine(line string) {
	for _, l := range g.lines {
		if l == line {
			return
		}
	}
	g.lines = append(g.lines, line)
}

// Reconcile groups requirements by normalized name, drops local
// subprojects, collapses conflicting lines to the bare name and swaps in
// a compatible local wheel where one exists. Artifacts are installed
// before plain requirements.
func Reconcile(in Input) (*Plan, error) {
	plan := &Plan{VenvPath: in.VenvPath, PythonPath: in.PythonPath}

	local := make(map[string]bool, len(in.Local))
	for _, l := range in.Local {
		local[wheel.NormalizeName(l)] = true
	}

	var order []string
	groups := map[string]*group{}
	get := func(name string) *group {
		key := wheel.NormalizeName(name)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, name: name}
			groups[key] = g
			order = append(order, key)
		}
		return g
	}

	for _, r := range in.Requirements {
		g := get(r.Name)
		if r.IsWheel() {
			if g.wheelRef == "" {
				g.wheelRef = r.Wheel
				g.wheelRaw = r.Line
			}
			continue
		}
		g.addLine(r.Line)
	}

	wheelOnly := map[string]bool{}
	for _, d := range in.Directives {
		if d.Kind == manifest.DirectiveWheel {
			wheelOnly[wheel.NormalizeName(d.Name)] = true
			get(d.Name)
		}
	}

	for _, path := range in.Wheels {
		a, err := wheel.ParseFilename(path)
		if err != nil {
			return nil, fmt.Errorf("configured wheel %s: %w", path, err)
		}
		if !a.CompatibleWith(in.Target) {
			return nil, fmt.Errorf("%w: %s cannot be installed into %s", wheel.ErrNoArtifactFound, a.Filename, in.Target)
		}
		g := get(a.Name)
		g.artifact = &a
	}

	var artifacts, requirements []Entry
	for _, key := range order {
		g := groups[key]
		if local[key] {
			plan.Skipped = append(plan.Skipped, g.name)
			logging.Debug("Skipping local package", "package", g.name)
			continue
		}

		a, err := resolveGroup(in, g)
		if err != nil {
			return nil, err
		}
		if a != nil {
			staged, err := stage(*a, in.StagingDir)
			if err != nil {
				return nil, err
			}
			plan.Staged = append(plan.Staged, staged)
			artifacts = append(artifacts, Entry{Name: g.name, Line: staged, Artifact: true})
			continue
		}

		if wheelOnly[key] {
			plan.Missing = append(plan.Missing, g.name)
			logging.Warn("No local wheel for package, using requirement", "package", g.name,
				"target", in.Target.String(), "error", wheel.ErrNoArtifactFound)
		}
		requirements = append(requirements, Entry{Name: g.name, Line: textLine(g)})
	}

	sortEntries(artifacts, in.InstallFirst)
	sortEntries(requirements, in.InstallFirst)
	plan.Entries = append(artifacts, requirements...)

	seen := map[string]bool{}
	for _, d := range in.Directives {
		if d.Kind != manifest.DirectiveReinstall {
			continue
		}
		key := wheel.NormalizeName(d.Name)
		if local[key] || seen[key] {
			continue
		}
		seen[key] = true
		line := d.Name
		for _, e := range plan.Entries {
			if wheel.NormalizeName(e.Name) == key {
				line = e.Line
				break
			}
		}
		plan.Reinstall = append(plan.Reinstall, line)
	}

	logging.Info("Reconciled requirements", "entries", len(plan.Entries), "artifacts", len(artifacts),
		"skipped", len(plan.Skipped), "reinstall", len(plan.Reinstall))
	return plan, nil
}

// resolveGroup returns the wheel to install for g, or nil for a textual requirement.
func resolveGroup(in Input, g *group) (*wheel.Artifact, error) {
	if g.artifact != nil {
		return g.artifact, nil
	}
	if in.Resolver == nil {
		return nil, nil
	}
	if g.wheelRef != "" {
		a, err := in.Resolver.Lookup(g.wheelRef)
		if err == nil {
			return &a, nil
		}
		if !errors.Is(err, wheel.ErrNoArtifactFound) {
			return nil, err
		}
		logging.Warn("Referenced wheel not in store", "file", g.wheelRef)
	}
	a, err := in.Resolver.Resolve(g.name, in.Target)
	if err == nil {
		return &a, nil
	}
	if errors.Is(err, wheel.ErrNoArtifactFound) {
		return nil, nil
	}
	return nil, err
}

// textLine is the verbatim line when all sources agree, the bare name otherwise.
func textLine(g *group) string {
	switch len(g.lines) {
	case 0:
		if g.wheelRaw != "" {
			return g.wheelRaw
		}
		return g.name
	case 1:
		return g.lines[0]
	default:
		logging.Info("Conflicting requirement lines, using bare name", "package", g.name, "lines", g.lines)
		return g.name
	}
}

func stage(a wheel.Artifact, dir string) (string, error) {
	if dir == "" {
		return a.Path, nil
	}
	return wheel.Stage(a, dir)
}

// sortEntries orders alphabetically by normalized name with the first
// names moved to the front in their listed order.
func sortEntries(entries []Entry, first []string) {
	rank := make(map[string]int, len(first))
	for i, f := range first {
		rank[wheel.NormalizeName(f)] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := wheel.NormalizeName(entries[i].Name), wheel.NormalizeName(entries[j].Name)
		ri, kiFirst := rank[ki]
		rj, kjFirst := rank[kj]
		switch {
		case kiFirst && kjFirst:
			return ri < rj
		case kiFirst:
			return true
		case kjFirst:
			return false
		}
		return ki < kj
	})
}
