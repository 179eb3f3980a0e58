// pkg/scripts/command.go - running single programs and capturing their output.

package scripts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// Commander runs one program in dir and returns its standard output.
type Commander interface {
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecCommander runs programs with os/exec and a hidden console window.
type ExecCommander struct{}

// Output executes name with args. The error carries the exit status and stderr.
func (ExecCommander) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	hideConsoleWindow(cmd)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logging.Debug("Running command", "command", name, "args", strings.Join(args, " "), "dir", dir)
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("command execution failed: %w | stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

// FakeCall is one invocation recorded by FakeCommander.
type FakeCall struct {
	Dir  string
	Name string
	Args []string
}

// FakeCommander records calls and answers from Respond. It never starts a process.
type FakeCommander struct {
	Calls   []FakeCall
	Respond func(c FakeCall) (string, error)
}

func (f *FakeCommander) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	c := FakeCall{Dir: dir, Name: name, Args: args}
	f.Calls = append(f.Calls, c)
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(c)
}
