package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharksmhi/sharktools-install/pkg/acquire"
	"github.com/sharksmhi/sharktools-install/pkg/blocking"
	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/reporter"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
	"github.com/sharksmhi/sharktools-install/pkg/state"
	"github.com/sharksmhi/sharktools-install/pkg/utils"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

func fixedNow() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) }

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// newPython returns an interpreter that probes as 64-bit 3.11.4.
func newPython(t *testing.T) (string, *scripts.FakeCommander) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Python311")
	write(t, filepath.Join(dir, "python.exe"), "")
	write(t, filepath.Join(dir, "NEWS.txt"), "What's New in Python 3.11.4 final?\n")
	return filepath.Join(dir, "python.exe"), &scripts.FakeCommander{
		Respond: func(scripts.FakeCall) (string, error) { return "64\n", nil },
	}
}

// venvRunner creates the environment when the venv script runs.
func venvRunner(installDir string) *scripts.DryRunner {
	return &scripts.DryRunner{Hook: func(p string) error {
		if filepath.Base(p) == "create_venv.bat" {
			dir := filepath.Join(installDir, "venv", "Scripts")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "activate"), []byte("rem"), 0644)
		}
		return nil
	}}
}

func TestWheelInstall(t *testing.T) {
	store := t.TempDir()
	plugin := filepath.Join(store, "SHARKtools_ctd_processing-1.2.0-py3-none-any.whl")
	write(t, plugin, "whl")
	write(t, filepath.Join(store, "GDAL-3.4.3-cp311-cp311-win_amd64.whl"), "whl")
	write(t, filepath.Join(store, "GDAL-3.4.3-cp311-cp311-win32.whl"), "whl")
	ws := wheel.NewStore(store)
	idx, err := wheel.BuildIndex(ws)
	require.NoError(t, err)

	py, cmd := newPython(t)
	root := t.TempDir()
	install := filepath.Join(root, "SHARKtools_20240305")
	cfg := config.GetDefaultConfig()
	cfg.Requirements = []string{"GDAL", "pandas"}
	runner := venvRunner(install)
	rec := &reporter.Recorder{}
	st := &state.Store{Dir: filepath.Join(t.TempDir(), "state")}

	inst := New(Options{
		Config:    cfg,
		Strategy:  &acquire.LocalWheel{Index: idx},
		Runner:    runner,
		Commander: cmd,
		Resolver:  ws,
		Plugins:   idx,
		State:     st,
		Reporter:  rec,
		Now:       fixedNow,
	})
	sum, err := inst.Run(context.Background(), Request{
		InstallRoot: root,
		PythonPath:  py,
		Plugins:     selection.Selection{"SHARKtools_ctd_processing": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, Done, inst.State())

	l := inst.Layout()
	assert.Equal(t, install, l.InstallDir)
	assert.Equal(t, []string{l.CreateVenvScript, l.InstallScript}, runner.Ran)

	stagedGDAL := filepath.Join(l.WheelsDir, "GDAL-3.4.3-cp311-cp311-win_amd64.whl")
	stagedPlugin := filepath.Join(l.WheelsDir, "SHARKtools_ctd_processing-1.2.0-py3-none-any.whl")
	assert.Equal(t, []string{stagedGDAL, stagedPlugin, "pandas"}, inst.Plan().Lines())
	assert.FileExists(t, stagedGDAL)
	assert.FileExists(t, stagedPlugin)

	script := read(t, l.InstallScript)
	assert.Contains(t, script, "pip install "+utils.BatchPath(stagedPlugin))
	assert.Contains(t, script, "pip freeze > "+utils.BatchPath(l.FreezeFile))
	assert.Equal(t, strings.Join([]string{stagedGDAL, stagedPlugin, "pandas"}, "\n"), read(t, l.RequirementsFile))

	assert.Equal(t, "import sharktools\nsharktools.run_app()", read(t, l.MainFile))
	assert.Contains(t, read(t, l.RunScript), "python "+utils.BatchPath(l.MainFile))
	assert.NoFileExists(t, l.PthFile)

	text := read(t, filepath.Join(l.HistoryDir, "summary.txt"))
	assert.True(t, strings.HasPrefix(text, "Installerar i mapp: "+install))
	assert.Contains(t, text, "Använder pythonversion: 3.11.4")
	assert.Contains(t, text, "Installerar plugin "+plugin)
	assert.FileExists(t, filepath.Join(l.HistoryDir, "summary.yaml"))
	assert.Equal(t, "Done", sum.Status)

	remembered, ok := st.LoadPythonPath()
	require.True(t, ok)
	assert.Equal(t, py, remembered)
	assert.Contains(t, rec.Events, "percent: 100")
}

func TestGitInstall(t *testing.T) {
	py, cmd := newPython(t)
	root := t.TempDir()
	install := filepath.Join(root, "SHARKtools_20240305")

	git := &scripts.FakeCommander{Respond: func(c scripts.FakeCall) (string, error) {
		if c.Args[0] != "clone" {
			return "", nil
		}
		dir := filepath.Join(c.Dir, c.Args[2])
		switch c.Args[2] {
		case "SHARKtools":
			write(t, filepath.Join(dir, "main.py"), "")
			write(t, filepath.Join(dir, "requirements.txt"), "pandas==2.1.0\nsharkpylib\n#reinstall openpyxl\nopenpyxl\n")
		case "sharkpylib":
			write(t, filepath.Join(dir, "sharkpylib", "__init__.py"), "")
			write(t, filepath.Join(dir, "requirements.txt"), "numpy\n")
		default:
			write(t, filepath.Join(dir, "requirements.txt"), "pandas==2.0.3\nSHARKtools-ctd-processing\n")
		}
		return "", nil
	}}

	cfg := config.GetDefaultConfig()
	cfg.Strategy = config.StrategyGit
	runner := venvRunner(install)
	inst := New(Options{
		Config:    cfg,
		Strategy:  &acquire.GitCloneOrPull{Git: git, URLTemplate: cfg.GitURLTemplate},
		Runner:    runner,
		Commander: cmd,
		Plugins:   selection.Catalog{"SHARKtools_ctd_processing"},
		Blocking:  &blocking.Checker{List: func() ([]blocking.Proc, error) { return nil, nil }},
		Now:       fixedNow,
	})
	_, err := inst.Run(context.Background(), Request{
		InstallRoot: root,
		PythonPath:  py,
		Plugins:     selection.Selection{"SHARKtools_ctd_processing": ""},
	})
	require.NoError(t, err)

	l := inst.Layout()
	assert.Equal(t, []string{"numpy", "openpyxl", "pandas"}, inst.Plan().Lines())
	assert.Equal(t, []string{"openpyxl"}, inst.Plan().Reinstall)
	assert.Equal(t, scripts.PathFile([]string{l.ProgramDir, filepath.Join(install, "sharkpylib")}), read(t, l.PthFile))
	assert.Contains(t, read(t, l.RunScript), "python "+utils.BatchPath(filepath.Join(l.ProgramDir, "main.py")))
	assert.NoFileExists(t, l.MainFile)
}

func TestGitInstallStagesStoreWheels(t *testing.T) {
	store := t.TempDir()
	write(t, filepath.Join(store, "pyproj-3.6.1-cp311-cp311-win_amd64.whl"), "whl")
	write(t, filepath.Join(store, "GDAL-3.4.3-cp311-cp311-win_amd64.whl"), "whl")
	ws := wheel.NewStore(store)

	py, cmd := newPython(t)
	root := t.TempDir()
	install := filepath.Join(root, "SHARKtools_20240305")
	git := &scripts.FakeCommander{Respond: func(c scripts.FakeCall) (string, error) {
		dir := filepath.Join(c.Dir, c.Args[2])
		if c.Args[2] == "SHARKtools" {
			write(t, filepath.Join(dir, "main.py"), "")
			write(t, filepath.Join(dir, "requirements.txt"),
				"pandas\npyproj-3.6.1-cp311-cp311-win_amd64.whl\n#wheel GDAL\n")
		} else {
			write(t, filepath.Join(dir, "__init__.py"), "")
		}
		return "", nil
	}}

	cfg := config.GetDefaultConfig()
	cfg.Strategy = config.StrategyGit
	inst := New(Options{
		Config:    cfg,
		Strategy:  &acquire.GitCloneOrPull{Git: git, URLTemplate: cfg.GitURLTemplate},
		Runner:    venvRunner(install),
		Commander: cmd,
		Resolver:  ws,
		Now:       fixedNow,
	})
	_, err := inst.Run(context.Background(), Request{InstallRoot: root, PythonPath: py})
	require.NoError(t, err)

	l := inst.Layout()
	stagedPyproj := filepath.Join(l.WheelsDir, "pyproj-3.6.1-cp311-cp311-win_amd64.whl")
	stagedGDAL := filepath.Join(l.WheelsDir, "GDAL-3.4.3-cp311-cp311-win_amd64.whl")
	assert.Equal(t, []string{stagedPyproj, stagedGDAL, "pandas"}, inst.Plan().Lines())
	assert.Empty(t, inst.Plan().Missing)
	assert.FileExists(t, stagedPyproj)
	assert.FileExists(t, stagedGDAL)

	script := read(t, l.InstallScript)
	assert.Contains(t, script, "pip install "+utils.BatchPath(stagedPyproj))
	assert.Contains(t, script, "pip install "+utils.BatchPath(stagedGDAL))
	assert.NotContains(t, script, "pip install GDAL\n")
}

func TestWheelInstallRejectsIncompatibleBuild(t *testing.T) {
	store := t.TempDir()
	write(t, filepath.Join(store, "pluginA-1.2-cp39-cp39-win32.whl"), "whl")
	idx, err := wheel.BuildIndex(wheel.NewStore(store))
	require.NoError(t, err)

	py, cmd := newPython(t)
	runner := &scripts.DryRunner{}
	inst := New(Options{
		Strategy:  &acquire.LocalWheel{Index: idx},
		Runner:    runner,
		Commander: cmd,
		Plugins:   idx,
		Now:       fixedNow,
	})
	_, err = inst.Run(context.Background(), Request{
		InstallRoot: t.TempDir(),
		PythonPath:  py,
		Plugins:     selection.Selection{"pluginA": "1.2"},
	})
	require.ErrorIs(t, err, wheel.ErrNoArtifactFound)
	assert.Equal(t, Failed, inst.State())
	assert.Empty(t, runner.Ran)
}

func TestMissingVenvFails(t *testing.T) {
	py, cmd := newPython(t)
	runner := &scripts.DryRunner{}
	inst := New(Options{
		Config:    config.GetDefaultConfig(),
		Strategy:  &acquire.LocalWheel{Index: &wheel.Index{}},
		Runner:    runner,
		Commander: cmd,
		Now:       fixedNow,
	})
	sum, err := inst.Run(context.Background(), Request{InstallRoot: t.TempDir(), PythonPath: py})
	require.ErrorIs(t, err, ErrMissingVirtualEnvironment)
	assert.Equal(t, KindMissingVirtualEnvironment, KindOf(err))
	assert.Equal(t, Failed, inst.State())
	assert.Len(t, runner.Ran, 1)

	assert.Equal(t, "Failed", sum.Status)
	text := read(t, filepath.Join(inst.Layout().HistoryDir, "summary.txt"))
	assert.Contains(t, text, "Fel: ")
	assert.NoFileExists(t, inst.Layout().RunScript)
}

func TestDryRunStopsAfterScripts(t *testing.T) {
	py, cmd := newPython(t)
	runner := &scripts.DryRunner{}
	inst := New(Options{
		Config:    config.GetDefaultConfig(),
		Strategy:  &acquire.LocalWheel{Index: &wheel.Index{}},
		Runner:    runner,
		Commander: cmd,
		Now:       fixedNow,
		DryRun:    true,
	})
	_, err := inst.Run(context.Background(), Request{InstallRoot: t.TempDir(), PythonPath: py})
	require.NoError(t, err)
	assert.Empty(t, runner.Ran)
	assert.FileExists(t, inst.Layout().CreateVenvScript)
	assert.FileExists(t, inst.Layout().InstallScript)
}

func TestProgramRunningBlocksInstall(t *testing.T) {
	py, cmd := newPython(t)
	root := t.TempDir()
	running := filepath.Join(root, "SHARKtools_20240305", "venv", "Scripts", "python.exe")
	runner := &scripts.DryRunner{}
	inst := New(Options{
		Config:    config.GetDefaultConfig(),
		Strategy:  &acquire.LocalWheel{Index: &wheel.Index{}},
		Runner:    runner,
		Commander: cmd,
		Blocking: &blocking.Checker{List: func() ([]blocking.Proc, error) {
			return []blocking.Proc{{PID: 7, Exe: running}}, nil
		}},
		Now: fixedNow,
	})
	_, err := inst.Run(context.Background(), Request{InstallRoot: root, PythonPath: py})
	require.ErrorIs(t, err, blocking.ErrProgramRunning)
	assert.Empty(t, runner.Ran)
	assert.Equal(t, Failed, inst.State())
}

func TestRequestWithoutPythonTouchesNothing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "installs")
	inst := New(Options{Now: fixedNow})
	_, err := inst.Run(context.Background(), Request{InstallRoot: root})
	require.ErrorIs(t, err, ErrNoPythonSelected)
	assert.NoDirExists(t, root)
	assert.Equal(t, Idle, inst.State())

	assert.ErrorIs(t, Request{PythonPath: "python.exe"}.Validate(), ErrNoInstallRoot)
}

func TestTransitions(t *testing.T) {
	py, cmd := newPython(t)
	inst := New(Options{
		Strategy:  &acquire.LocalWheel{Index: &wheel.Index{}},
		Runner:    &scripts.DryRunner{},
		Commander: cmd,
		Now:       fixedNow,
	})
	ctx := context.Background()

	assert.ErrorIs(t, inst.SetPython(ctx, py), ErrInvalidTransition)
	assert.ErrorIs(t, inst.SetPlugins(nil), ErrInvalidTransition)
	_, err := inst.Install(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, inst.SetInstallRoot(t.TempDir()))
	assert.Equal(t, RootSelected, inst.State())
	assert.ErrorIs(t, inst.SetPlugins(nil), ErrInvalidTransition)

	require.NoError(t, inst.SetPython(ctx, py))
	require.NoError(t, inst.SetPlugins(nil))
	assert.Equal(t, PluginsSelected, inst.State())

	require.NoError(t, inst.SetInstallRoot(t.TempDir()))
	assert.Equal(t, RootSelected, inst.State())
	_, err = inst.Install(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetPythonRejectsOldInterpreter(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "python.exe"), "")
	write(t, filepath.Join(dir, "NEWS.txt"), "What's New in Python 3.9.13 final?\n")
	_, cmd := newPython(t)
	inst := New(Options{Commander: cmd, Now: fixedNow})
	require.NoError(t, inst.SetInstallRoot(t.TempDir()))

	err := inst.SetPython(context.Background(), filepath.Join(dir, "python.exe"))
	assert.Equal(t, KindUnsupportedPython, KindOf(err))
	assert.Equal(t, RootSelected, inst.State())

	err = inst.SetPython(context.Background(), filepath.Join(dir, "missing.exe"))
	assert.Equal(t, KindMissingInterpreter, KindOf(err))
}

func TestSetPluginsValidates(t *testing.T) {
	py, cmd := newPython(t)
	inst := New(Options{Commander: cmd, Plugins: selection.Catalog{"SHARKtools_ctd_processing"}, Now: fixedNow})
	require.NoError(t, inst.SetInstallRoot(t.TempDir()))
	require.NoError(t, inst.SetPython(context.Background(), py))

	err := inst.SetPlugins(selection.Selection{"SHARKtools_unknown": ""})
	assert.ErrorIs(t, err, selection.ErrUnknownPlugin)
	title, body := Describe(err, "sv")
	assert.Equal(t, "Plugin", title)
	assert.Equal(t, "Ogilltig plugin", body)
}

func TestLayout(t *testing.T) {
	l := NewLayout(`/inst`, "SHARKtools", "venv", true, fixedNow())
	assert.Equal(t, filepath.Join("/inst", "SHARKtools_20240305"), l.InstallDir)
	assert.Equal(t, filepath.Join(l.InstallDir, "SHARKtools", "plugins"), l.PluginsDir)
	assert.Equal(t, filepath.Join(l.InstallDir, "venv", "Lib", "site-packages", "sharktools.pth"), l.PthFile)
	assert.Equal(t, filepath.Join(l.InstallDir, "install_history", "install_plugins.bat"), l.InstallScript)

	undated := NewLayout(`/inst`, "SHARKtools", "venv", false, fixedNow())
	assert.Equal(t, filepath.Join("/inst", "SHARKtools"), undated.InstallDir)
}

func TestDescribe(t *testing.T) {
	wrapped := fmt.Errorf("execute: %w", ErrMissingVirtualEnvironment)
	_, body := Describe(wrapped, "sv")
	assert.Equal(t, "Virtuell pythonmiljö saknas. Skapa en miljö innan du installerar paket!", body)
	_, body = Describe(wrapped, "de")
	assert.Equal(t, "Virtuell pythonmiljö saknas. Skapa en miljö innan du installerar paket!", body)

	run := &runCheckError{sv: "sharkpylib är inte nedladdat", en: "sharkpylib is not downloaded"}
	title, body := Describe(run, "en")
	assert.Equal(t, "Cannot run program", title)
	assert.Equal(t, "sharkpylib is not downloaded", body)
	assert.ErrorIs(t, run, ErrCannotRunProgram)

	title, body = Describe(errors.New("disk full"), "sv")
	assert.Equal(t, "Fel", title)
	assert.Equal(t, "disk full", body)

	title, body = Describe(nil, "sv")
	assert.Empty(t, title)
	assert.Empty(t, body)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrNoPythonSelected, KindNoPythonSelected},
		{fmt.Errorf("x: %w", ErrInvalidTransition), KindInvalidTransition},
		{fmt.Errorf("x: %w", selection.ErrUnknownVersion), KindUnknownVersion},
		{fmt.Errorf("x: %w", blocking.ErrProgramRunning), KindProgramRunning},
		{errors.New("other"), KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err))
	}
}
