// pkg/scripts/dryrun.go - a Runner that records scripts instead of executing them.

package scripts

import (
	"context"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// DryRunner records every script it is asked to run. Hook, when set, is
// called for each script and its error is returned.
type DryRunner struct {
	Ran  []string
	Hook func(scriptPath string) error
}

// Run records scriptPath.
func (r *DryRunner) Run(ctx context.Context, scriptPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Ran = append(r.Ran, scriptPath)
	logging.Info("Dry run, not executing script", "path", scriptPath)
	if r.Hook != nil {
		return r.Hook(scriptPath)
	}
	return nil
}
