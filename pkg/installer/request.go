// pkg/installer/request.go - input from the front end

package installer

import (
	"context"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/report"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
)

// Request is what the front end supplies for one install.
type Request struct {
	InstallRoot string
	PythonPath  string
	Plugins     selection.Selection
}

// Validate checks the request without touching the filesystem.
func (r Request) Validate() error {
	if strings.TrimSpace(r.PythonPath) == "" {
		return ErrNoPythonSelected
	}
	if strings.TrimSpace(r.InstallRoot) == "" {
		return ErrNoInstallRoot
	}
	return nil
}

// Run validates req and walks through every step of an install.
func (i *Installer) Run(ctx context.Context, req Request) (*report.Summary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := i.SetInstallRoot(req.InstallRoot); err != nil {
		return nil, err
	}
	if err := i.SetPython(ctx, req.PythonPath); err != nil {
		return nil, err
	}
	if err := i.SetPlugins(req.Plugins); err != nil {
		return nil, err
	}
	return i.Install(ctx)
}
