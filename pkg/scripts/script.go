// pkg/scripts/script.go - generation of the Windows batch files that build the environment.

package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/reconcile"
	"github.com/sharksmhi/sharktools-install/pkg/utils"
)

// Script is an ordered list of batch lines.
type Script struct {
	Name  string
	Lines []string
}

// Add appends lines.
func (s *Script) Add(lines ...string) {
	s.Lines = append(s.Lines, lines...)
}

// String renders the script with "\n" separators.
func (s Script) String() string {
	return strings.Join(s.Lines, "\n")
}

// WriteFile writes the script to path, replacing any earlier version.
func (s Script) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(s.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s script %s: %w", s.Name, path, err)
	}
	return nil
}

// quote wraps an argument in double quotes when cmd.exe would split or
// redirect it. Embedded double quotes become single quotes.
func quote(arg string) string {
	if arg == "" || (strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) && len(arg) > 1) {
		return arg
	}
	if strings.ContainsAny(arg, " \t<>|&^()\"") {
		return `"` + strings.ReplaceAll(arg, `"`, "'") + `"`
	}
	return arg
}

// pathArg renders a path argument.
func pathArg(p string) string {
	return quote(utils.BatchPath(p))
}

// isPath reports whether an install entry is a file rather than a requirement.
func isPath(entry string) bool {
	if strings.Contains(entry, "://") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(entry), ".whl") ||
		strings.Contains(entry, `\`) ||
		strings.HasPrefix(entry, "/") ||
		utils.DriveLetter(entry) != ""
}

func entryArg(e string) string {
	if isPath(e) {
		return pathArg(e)
	}
	return quote(e)
}

// activate is the venv activation line.
func activate(venv string) string {
	return "call " + pathArg(utils.BatchJoin(venv, "Scripts", "activate"))
}

// EnvironmentScript switches to the install directory and creates the
// virtual environment venvName there. With reuse an existing environment
// is kept.
func EnvironmentScript(installDir, python, venvName string, reuse bool) Script {
	s := Script{Name: "create_venv"}
	if drive := utils.DriveLetter(installDir); drive != "" {
		s.Add(drive)
	}
	s.Add("cd " + pathArg(installDir))

	create := fmt.Sprintf("call %s -m venv %s", pathArg(python), quote(venvName))
	if !reuse {
		s.Add(create)
		return s
	}

	venv := utils.BatchJoin(installDir, venvName)
	s.Add(
		"if exist "+quote(venv+`\`)+" (",
		"ECHO Virtual environment already exists",
		") else (",
		fmt.Sprintf("ECHO Creating virtual environment at %s using %s", venv, utils.BatchPath(python)),
		create,
		")",
	)
	return s
}

// InstallScript activates the plan's environment, upgrades pip, installs
// every entry in order, forces the reinstalls and records the result of
// pip freeze in freezePath.
func InstallScript(plan *reconcile.Plan, freezePath string) Script {
	s := Script{Name: "install_plugins"}
	s.Add(activate(plan.VenvPath))
	s.Add("python -m pip install --upgrade pip")
	for _, e := range plan.Entries {
		s.Add("pip install " + entryArg(e.Line))
	}
	for _, r := range plan.Reinstall {
		s.Add("pip install --upgrade --force-reinstall " + entryArg(r))
	}
	if freezePath != "" {
		s.Add("pip freeze > " + pathArg(freezePath))
	}
	return s
}

// RunScript starts the toolbox inside its environment.
func RunScript(venv, mainFile string) Script {
	s := Script{Name: "start_sharktools"}
	s.Add(activate(venv))
	s.Add("python " + pathArg(mainFile))
	return s
}

// BackupScript mirrors src into dst with robocopy, leaving out the
// directories in exclude. Robocopy exit codes below 8 mean success.
func BackupScript(src, dst string, exclude []string) Script {
	s := Script{Name: "backup"}
	line := fmt.Sprintf("robocopy %s %s /s", pathArg(src), pathArg(dst))
	if len(exclude) > 0 {
		quoted := make([]string, len(exclude))
		for i, e := range exclude {
			quoted[i] = quote(e)
		}
		line += " /xd " + strings.Join(quoted, " ")
	}
	s.Add(line)
	s.Add("if %ERRORLEVEL% GEQ 8 exit /b %ERRORLEVEL%")
	s.Add("exit /b 0")
	return s
}

// PathFile is the content of a .pth file adding local source trees to the
// environment's import path.
func PathFile(paths []string) string {
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		lines = append(lines, utils.BatchPath(p))
	}
	return strings.Join(lines, "\n")
}

// MainFile is the generated entry point importing module and running its app.
func MainFile(module string) string {
	return strings.Join([]string{
		"import " + module,
		module + ".run_app()",
	}, "\n")
}
