// pkg/acquire/git.go - clone or hard-reset-and-pull git repositories

package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
)

// GitCloneOrPull keeps one working copy per repository below the install directory.
type GitCloneOrPull struct {
	Git         scripts.Commander
	GitPath     string // defaults to "git"
	URLTemplate string
}

func (g *GitCloneOrPull) Name() string { return string(config.StrategyGit) }

func (g *GitCloneOrPull) git() string {
	if g.GitPath == "" {
		return "git"
	}
	return g.GitPath
}

// repos returns the configured repositories or those derived from the
// program, plugins and libraries.
func (g *GitCloneOrPull) repos(req Request) []config.Repo {
	if len(req.Repos) > 0 {
		return req.Repos
	}
	pluginsRel, err := filepath.Rel(req.InstallDir, req.PluginsDir)
	if err != nil {
		pluginsRel = filepath.Join(req.Program, "plugins")
	}
	repos := []config.Repo{{URL: config.URLFor(g.URLTemplate, req.Program)}}
	for _, p := range req.Plugins.Names() {
		repos = append(repos, config.Repo{URL: config.URLFor(g.URLTemplate, p), Subdir: pluginsRel})
	}
	for _, l := range req.Libraries {
		repos = append(repos, config.Repo{URL: config.URLFor(g.URLTemplate, l)})
	}
	return repos
}

// Acquire clones missing repositories and resets and pulls existing ones.
// Top-level repositories become source roots.
func (g *GitCloneOrPull) Acquire(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}
	for _, repo := range g.repos(req) {
		parent := filepath.Join(req.InstallDir, repo.Subdir)
		dir := filepath.Join(parent, repo.Name())

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			logging.Info("Updating repository", "url", repo.URL, "dir", dir)
			if _, err := g.Git.Output(ctx, dir, g.git(), "reset", "--hard"); err != nil {
				return res, fmt.Errorf("git reset in %s: %w", dir, err)
			}
			if _, err := g.Git.Output(ctx, dir, g.git(), "pull"); err != nil {
				return res, fmt.Errorf("git pull in %s: %w", dir, err)
			}
		} else {
			logging.Info("Cloning repository", "url", repo.URL, "dir", dir)
			if err := req.Root.MkdirAll(parent); err != nil {
				return res, err
			}
			if _, err := g.Git.Output(ctx, parent, g.git(), "clone", repo.URL, repo.Name()); err != nil {
				return res, fmt.Errorf("git clone %s: %w", repo.URL, err)
			}
		}

		res.Acquired = append(res.Acquired, repo.Name())
		if repo.Subdir == "" {
			res.SourceRoots = append(res.SourceRoots, dir)
		}
	}
	return res, nil
}
