// pkg/installer/installer.go - drives one installation from root selection to launch script

package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sharksmhi/sharktools-install/pkg/acquire"
	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/manifest"
	"github.com/sharksmhi/sharktools-install/pkg/python"
	"github.com/sharksmhi/sharktools-install/pkg/reconcile"
	"github.com/sharksmhi/sharktools-install/pkg/report"
	"github.com/sharksmhi/sharktools-install/pkg/reporter"
	"github.com/sharksmhi/sharktools-install/pkg/scope"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
	"github.com/sharksmhi/sharktools-install/pkg/utils"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

// State is the position of an Installer in its lifecycle.
type State int

const (
	Idle State = iota
	RootSelected
	PythonSelected
	PluginsSelected
	Acquiring
	Reconciling
	ScriptsEmitted
	Executing
	Done
	Failed
)

var stateNames = [...]string{"Idle", "RootSelected", "PythonSelected", "PluginsSelected",
	"Acquiring", "Reconciling", "ScriptsEmitted", "Executing", "Done", "Failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ProcessChecker refuses to continue while something runs from dir.
// *blocking.Checker satisfies it.
type ProcessChecker interface {
	Check(dir string) error
}

// PythonStore remembers the last used interpreter. *state.Store satisfies it.
type PythonStore interface {
	SavePythonPath(path string) error
}

// Options wires the collaborators of an Installer.
type Options struct {
	Config    *config.Configuration
	Strategy  acquire.Strategy
	Runner    scripts.Runner
	Commander scripts.Commander
	Resolver  reconcile.Resolver // local wheel store; nil disables wheel lookup
	Plugins   selection.Source   // known plugins; nil accepts any
	Blocking  ProcessChecker
	State     PythonStore
	Reporter  reporter.Reporter
	Now       func() time.Time
	DryRun    bool // stop after the scripts are written
}

// Installer owns one install run. It is not safe for concurrent use.
type Installer struct {
	opts    Options
	cfg     *config.Configuration
	state   State
	layout  *Layout
	root    *scope.Root
	python  python.Interpreter
	target  wheel.Target
	plugins selection.Selection
	plan    *reconcile.Plan
}

// New returns an Installer in the Idle state.
func New(opts Options) *Installer {
	if opts.Config == nil {
		opts.Config = config.GetDefaultConfig()
	}
	if opts.Reporter == nil {
		opts.Reporter = reporter.NewNoOpReporter()
	}
	if opts.Commander == nil {
		opts.Commander = scripts.ExecCommander{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Installer{opts: opts, cfg: opts.Config, state: Idle}
}

// State returns the current state.
func (i *Installer) State() State { return i.state }

// Layout returns the paths of the selected install directory, or nil.
func (i *Installer) Layout() *Layout { return i.layout }

// Plan returns the reconciled install plan of the last run, or nil.
func (i *Installer) Plan() *reconcile.Plan { return i.plan }

// Python returns the selected interpreter.
func (i *Installer) Python() python.Interpreter { return i.python }

// require returns ErrInvalidTransition unless the installer is in one of allowed.
func (i *Installer) require(op string, allowed ...State) error {
	for _, st := range allowed {
		if i.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, op, i.state)
}

// setState moves to next and logs the change.
func (i *Installer) setState(next State) {
	logging.Debug("Installer state change", "from", i.state.String(), "to", next.String())
	i.state = next
}

// SetInstallRoot creates root if needed and the install directory below it.
// Setting the root again steps back and requires python and plugins anew.
func (i *Installer) SetInstallRoot(path string) error {
	if err := i.require("SetInstallRoot", Idle, RootSelected, PythonSelected, PluginsSelected, Done, Failed); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return ErrNoInstallRoot
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create install root: %w", err)
	}

	layout := NewLayout(path, i.cfg.ProjectName, i.cfg.VenvName, i.cfg.DatedInstallDir, i.opts.Now())
	root, err := scope.New(layout.InstallDir, i.cfg.ProjectName)
	if err != nil {
		return err
	}
	if err := root.MkdirAll(layout.InstallDir); err != nil {
		return err
	}
	i.layout, i.root = layout, root
	i.python, i.plugins, i.plan = python.Interpreter{}, nil, nil
	i.setState(RootSelected)
	logging.Info("Install directory selected", "dir", layout.InstallDir)
	return nil
}

// SetPython validates and probes the interpreter and remembers it.
func (i *Installer) SetPython(ctx context.Context, path string) error {
	if err := i.require("SetPython", RootSelected, PythonSelected, PluginsSelected, Done, Failed); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return ErrNoPythonSelected
	}
	in, err := python.Probe(ctx, i.opts.Commander, path)
	if err != nil {
		return err
	}
	if err := python.CheckMinimum(in.Version, i.cfg.MinPythonVersion); err != nil {
		return err
	}
	if i.cfg.PythonBits != 0 {
		in.Bits = i.cfg.PythonBits
	}
	target, err := in.Target()
	if err != nil {
		return err
	}
	if i.cfg.PythonTag != "" {
		target.Tag = i.cfg.PythonTag
	}

	i.python, i.target, i.plugins = in, target, nil
	i.setState(PythonSelected)
	if i.opts.State != nil {
		if err := i.opts.State.SavePythonPath(path); err != nil {
			logging.Warn("Failed to remember python path", "error", err)
		}
	}
	return nil
}

// SetPlugins validates sel against the known plugins. An empty selection is allowed.
func (i *Installer) SetPlugins(sel selection.Selection) error {
	if err := i.require("SetPlugins", PythonSelected, PluginsSelected, Done, Failed); err != nil {
		return err
	}
	if err := sel.Validate(i.opts.Plugins); err != nil {
		return err
	}
	if sel == nil {
		sel = selection.Selection{}
	}
	i.plugins = sel
	i.setState(PluginsSelected)
	logging.Info("Plugins selected", "plugins", sel.String())
	return nil
}

// Install runs acquisition, reconciliation, script emission and
// execution. The summary is written whether or not the run succeeds.
func (i *Installer) Install(ctx context.Context) (*report.Summary, error) {
	if err := i.require("Install", PluginsSelected); err != nil {
		return nil, err
	}
	if i.opts.Strategy == nil || i.opts.Runner == nil {
		return nil, errors.New("installer needs an acquisition strategy and a script runner")
	}
	r := i.opts.Reporter
	sum := &report.Summary{
		SessionID:     logging.GetSessionID(),
		StartTime:     i.opts.Now(),
		Strategy:      i.opts.Strategy.Name(),
		InstallDir:    i.layout.InstallDir,
		Python:        i.python.Path,
		PythonVersion: i.python.Version,
		Plugins:       i.plugins,
	}
	sum.AddInfo("Installerar i mapp: %s", i.layout.InstallDir)
	sum.AddInfo("Använder pythonversion: %s (%s)", i.python.Version, i.python.Path)

	err := i.install(ctx, sum, r)

	sum.EndTime = i.opts.Now()
	if err != nil {
		i.setState(Failed)
		sum.Status = Failed.String()
		sum.Error = utils.LiteralString(err.Error())
		r.Error(err)
		logging.Error("Installation failed", "dir", i.layout.InstallDir, "error", err)
	} else {
		i.setState(Done)
		sum.Status = Done.String()
	}
	i.finish(sum)
	if err == nil {
		r.Percent(100)
		r.Done("Installation klar: " + i.layout.RunScript)
	}
	return sum, err
}

func (i *Installer) install(ctx context.Context, sum *report.Summary, r reporter.Reporter) error {
	l := i.layout
	if err := i.root.MkdirAll(l.HistoryDir); err != nil {
		return err
	}

	i.setState(Acquiring)
	r.Message("Hämtar " + i.opts.Strategy.Name())
	r.Percent(10)
	start := time.Now()
	res, err := i.acquire(ctx)
	sum.Step("acquire", start, err)
	if err != nil {
		return err
	}
	for _, w := range res.Wheels {
		sum.AddInfo("Installerar plugin %s", w)
	}

	i.setState(Reconciling)
	r.Message("Sammanställer paket")
	r.Percent(40)
	start = time.Now()
	plan, err := i.reconcile(res)
	sum.Step("reconcile", start, err)
	if err != nil {
		return err
	}
	i.plan = plan
	sum.Packages = plan.Lines()
	sum.Reinstall = plan.Reinstall
	sum.Skipped = plan.Skipped
	sum.MissingWheels = plan.Missing

	start = time.Now()
	env := scripts.EnvironmentScript(l.InstallDir, i.python.Path, i.cfg.VenvName, i.cfg.ReuseVenv)
	inst := scripts.InstallScript(plan, l.FreezeFile)
	err = env.WriteFile(l.CreateVenvScript)
	if err == nil {
		err = inst.WriteFile(l.InstallScript)
	}
	sum.Step("emit", start, err)
	if err != nil {
		return err
	}
	sum.InstallScript = utils.LiteralString(inst.String())
	i.setState(ScriptsEmitted)
	r.Percent(60)
	if i.opts.DryRun {
		logging.Info("Dry run, scripts written but not executed", "dir", l.HistoryDir)
		return nil
	}

	i.setState(Executing)
	start = time.Now()
	err = i.execute(ctx, res, r)
	sum.Step("execute", start, err)
	return err
}

func (i *Installer) acquire(ctx context.Context) (*acquire.Result, error) {
	l := i.layout
	if i.opts.Blocking != nil {
		if err := i.opts.Blocking.Check(l.InstallDir); err != nil {
			return nil, err
		}
	}
	return i.opts.Strategy.Acquire(ctx, acquire.Request{
		Root:       i.root,
		InstallDir: l.InstallDir,
		ProgramDir: l.ProgramDir,
		PluginsDir: l.PluginsDir,
		TempDir:    l.TempDir,
		Program:    i.cfg.MainProgram,
		Plugins:    i.plugins,
		Libraries:  i.cfg.Libraries,
		Repos:      i.cfg.Repos,
		Target:     i.target,
	})
}

func (i *Installer) reconcile(res *acquire.Result) (*reconcile.Plan, error) {
	l := i.layout
	collected := manifest.ParseLines(i.cfg.Requirements, config.ConfigFileName)
	var local []string
	if len(res.SourceRoots) > 0 {
		local = append(local, i.cfg.ProjectName, i.cfg.MainProgram)
		local = append(local, i.cfg.Libraries...)
		local = append(local, res.Acquired...)
	}
	for _, src := range res.SourceRoots {
		m, err := manifest.Collect(src, i.cfg.RequirementsFileName)
		if err != nil {
			return nil, err
		}
		collected.Requirements = append(collected.Requirements, m.Requirements...)
		collected.Directives = append(collected.Directives, m.Directives...)
		local = append(local, m.Subprojects...)
	}
	wheels := append(append([]string(nil), i.cfg.Wheels...), res.Wheels...)
	plan, err := reconcile.Reconcile(reconcile.Input{
		Requirements: collected.Requirements,
		Directives:   collected.Directives,
		Local:        localNames(local, res.Wheels),
		Wheels:       wheels,
		Resolver:     i.opts.Resolver,
		Target:       i.target,
		StagingDir:   l.WheelsDir,
		InstallFirst: i.cfg.InstallFirst,
		VenvPath:     l.VenvDir,
		PythonPath:   i.python.Path,
	})
	if err != nil {
		return nil, err
	}
	if err := manifest.WriteFile(l.RequirementsFile, plan.Lines()); err != nil {
		return nil, err
	}
	return plan, nil
}

// localNames drops names that are installed from a wheel, since those
// must stay in the plan.
func localNames(names, wheels []string) []string {
	fromWheel := map[string]bool{}
	for _, w := range wheels {
		if a, err := wheel.ParseFilename(w); err == nil {
			fromWheel[wheel.NormalizeName(a.Name)] = true
		}
	}
	var out []string
	for _, n := range names {
		if n != "" && !fromWheel[wheel.NormalizeName(n)] {
			out = append(out, n)
		}
	}
	return out
}

func (i *Installer) execute(ctx context.Context, res *acquire.Result, r reporter.Reporter) error {
	l := i.layout
	if !i.cfg.ReuseVenv {
		if err := i.root.Remove(l.VenvDir); err != nil {
			return err
		}
	}

	r.Message("Skapar virtuell miljö")
	if err := i.opts.Runner.Run(ctx, l.CreateVenvScript); err != nil {
		return err
	}
	if i.root.IsEmpty(l.VenvDir) {
		return fmt.Errorf("%w: %s", ErrMissingVirtualEnvironment, l.VenvDir)
	}
	r.Percent(70)

	r.Message("Installerar paket")
	if err := i.opts.Runner.Run(ctx, l.InstallScript); err != nil {
		return err
	}
	r.Percent(90)

	mainFile := l.MainFile
	if i.opts.Strategy.Name() == string(config.StrategyWheel) {
		if err := os.WriteFile(mainFile, []byte(scripts.MainFile("sharktools")), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", mainFile, err)
		}
	} else {
		if err := i.checkRunnable(); err != nil {
			return err
		}
		mainFile = filepath.Join(l.ProgramDir, "main.py")
		if err := i.writePathFile(res.SourceRoots); err != nil {
			return err
		}
	}
	return scripts.RunScript(l.VenvDir, mainFile).WriteFile(l.RunScript)
}

// checkRunnable requires the program, the environment and every library.
func (i *Installer) checkRunnable() error {
	l := i.layout
	if i.root.IsEmpty(l.ProgramDir) {
		return &runCheckError{sv: "Huvudprogram är inte nedladdat", en: "Main program is not downloaded"}
	}
	if i.root.IsEmpty(l.VenvDir) {
		return &runCheckError{sv: "Virtuell miljö är inte skapad", en: "Virtual environment is not created"}
	}
	for _, lib := range i.cfg.Libraries {
		found := false
		for _, dir := range l.LibraryDirs(lib) {
			if !i.root.IsEmpty(dir) {
				found = true
				break
			}
		}
		if !found {
			return &runCheckError{sv: lib + " är inte nedladdat", en: lib + " is not downloaded"}
		}
	}
	return nil
}

func (i *Installer) writePathFile(roots []string) error {
	if len(roots) == 0 {
		return nil
	}
	if err := i.root.MkdirAll(filepath.Dir(i.layout.PthFile)); err != nil {
		return err
	}
	if err := os.WriteFile(i.layout.PthFile, []byte(scripts.PathFile(roots)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", i.layout.PthFile, err)
	}
	return nil
}

// finish writes the summary files and copies the log into the history directory.
func (i *Installer) finish(sum *report.Summary) {
	l := i.layout
	if logFile := logging.CurrentLogFile(); logFile != "" {
		sum.LogFile = l.LogCopy
		if err := i.root.CopyFile(logFile, l.LogCopy); err != nil {
			logging.Warn("Failed to copy install log", "error", err)
			sum.LogFile = logFile
		}
		i.opts.Reporter.ShowLog(sum.LogFile)
	}
	textPath, _, err := sum.Write(l.HistoryDir)
	if err != nil {
		logging.Error("Failed to write summary", "error", err)
		return
	}
	logging.Info("Summary written", "path", textPath, "status", sum.Status)
}
