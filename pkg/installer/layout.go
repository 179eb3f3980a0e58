// pkg/installer/layout.go - every path of one installation

package installer

import (
	"path/filepath"
	"time"
)

// Layout holds the paths inside one install directory.
type Layout struct {
	Root             string
	InstallDir       string
	ProgramDir       string
	PluginsDir       string
	VenvDir          string
	WheelsDir        string
	TempDir          string
	HistoryDir       string
	CreateVenvScript string
	InstallScript    string
	RequirementsFile string
	FreezeFile       string
	LogCopy          string
	RunScript        string
	MainFile         string
	PthFile          string
}

// NewLayout derives the layout below root. With dated the install
// directory is <project>_<YYYYMMDD>, otherwise <project>.
func NewLayout(root, project, venvName string, dated bool, now time.Time) *Layout {
	name := project
	if dated {
		name = project + "_" + now.Format("20060102")
	}
	install := filepath.Join(root, name)
	program := filepath.Join(install, project)
	venv := filepath.Join(install, venvName)
	history := filepath.Join(install, "install_history")
	return &Layout{
		Root:             root,
		InstallDir:       install,
		ProgramDir:       program,
		PluginsDir:       filepath.Join(program, "plugins"),
		VenvDir:          venv,
		WheelsDir:        filepath.Join(install, "wheels"),
		TempDir:          filepath.Join(install, "_temp_sharktools"),
		HistoryDir:       history,
		CreateVenvScript: filepath.Join(history, "create_venv.bat"),
		InstallScript:    filepath.Join(history, "install_plugins.bat"),
		RequirementsFile: filepath.Join(history, "requirements.txt"),
		FreezeFile:       filepath.Join(history, "python_packages.txt"),
		LogCopy:          filepath.Join(history, "install.log"),
		RunScript:        filepath.Join(install, "start_sharktools.bat"),
		MainFile:         filepath.Join(install, "main.py"),
		PthFile:          filepath.Join(venv, "Lib", "site-packages", "sharktools.pth"),
	}
}

// LibraryDirs lists where library lib may live: inside the program
// (zip downloads) or beside it (git clones).
func (l *Layout) LibraryDirs(lib string) []string {
	return []string{filepath.Join(l.ProgramDir, lib), filepath.Join(l.InstallDir, lib)}
}
