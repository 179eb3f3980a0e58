// pkg/acquire/wheel.go - plugin wheels shipped next to the installer

package acquire

import (
	"context"
	"fmt"

	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

// LocalWheel picks the selected plugin wheels from the index. Nothing is
// downloaded.
type LocalWheel struct {
	Index *wheel.Index
}

func (l *LocalWheel) Name() string { return string(config.StrategyWheel) }

// Acquire resolves each selection to a wheel built for req.Target. An
// empty version means the newest version with such a build.
func (l *LocalWheel) Acquire(ctx context.Context, req Request) (*Result, error) {
	if l.Index == nil {
		return nil, fmt.Errorf("no wheel index for %d plugin(s)", len(req.Plugins))
	}
	if err := req.Plugins.Validate(l.Index); err != nil {
		return nil, err
	}
	res := &Result{}
	for _, name := range req.Plugins.Names() {
		v := req.Plugins[name]
		var (
			a  wheel.Artifact
			ok bool
		)
		if v == "" {
			a, ok = l.Index.LatestFor(name, req.Target)
		} else {
			a, ok = l.Index.Lookup(name, v, req.Target)
		}
		if !ok {
			return res, fmt.Errorf("%w: %s %s for %s", wheel.ErrNoArtifactFound, name, v, req.Target)
		}
		logging.Info("Installerar plugin", "plugin", name, "version", a.Version, "path", a.Path)
		res.Acquired = append(res.Acquired, name)
		res.Wheels = append(res.Wheels, a.Path)
	}
	return res, nil
}
