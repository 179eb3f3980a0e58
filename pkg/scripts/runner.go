// pkg/scripts/runner.go - blocking execution of generated batch files.

package scripts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// Runner runs a batch file and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, scriptPath string) error
}

// CmdRunner runs scripts through cmd.exe with a hidden console window.
type CmdRunner struct {
	Shell string // defaults to cmd.exe
}

// NewCmdRunner returns a runner using cmd.exe.
func NewCmdRunner() *CmdRunner {
	return &CmdRunner{Shell: "cmd.exe"}
}

// Run executes scriptPath and logs every output line.
func (r *CmdRunner) Run(ctx context.Context, scriptPath string) error {
	if !strings.EqualFold(filepath.Ext(scriptPath), ".bat") {
		return fmt.Errorf("not a batch file: %s", scriptPath)
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Errorf("script not found: %w", err)
	}

	shell := r.Shell
	if shell == "" {
		shell = "cmd.exe"
	}
	cmd := exec.CommandContext(ctx, shell, "/c", scriptPath)
	cmd.Dir = filepath.Dir(scriptPath)
	hideConsoleWindow(cmd)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logging.Info("Running script", "path", scriptPath)
	err := cmd.Run()

	logOutput(scriptPath, out.String(), logging.Debug)
	logOutput(scriptPath, stderr.String(), logging.Warn)

	if err != nil {
		logging.Error("Script failed", "path", scriptPath, "error", err)
		return fmt.Errorf("script %s failed: %w | stderr: %s", filepath.Base(scriptPath), err, strings.TrimSpace(stderr.String()))
	}
	logging.Info("Script completed successfully", "path", scriptPath)
	return nil
}

func logOutput(scriptPath, output string, logf func(string, ...interface{})) {
	for _, line := range strings.Split(output, "\n") {
		txt := strings.TrimSpace(line)
		if txt == "" {
			continue
		}
		txt = strings.TrimPrefix(txt, "\ufeff")
		logf(txt, "script", filepath.Base(scriptPath))
	}
}
