// pkg/acquire/zip.go - zipball download and extraction

package acquire

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/extract"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// FileFetcher downloads a URL to a file. *download.Downloader satisfies it.
type FileFetcher interface {
	File(ctx context.Context, url, dest string) (int64, error)
}

// ZipDownload fetches GitHub zipballs of the program, plugins and libraries.
type ZipDownload struct {
	Fetcher     FileFetcher
	URLTemplate string
}

func (z *ZipDownload) Name() string { return string(config.StrategyZip) }

// Acquire downloads and unpacks everything into the program directory.
// The temp directory is removed afterwards.
func (z *ZipDownload) Acquire(ctx context.Context, req Request) (*Result, error) {
	if err := req.Root.Reset(req.TempDir); err != nil {
		return nil, err
	}
	res := &Result{SourceRoots: []string{req.ProgramDir}}

	src, err := z.fetch(ctx, req, req.Program)
	if err != nil {
		return nil, err
	}
	if err := replaceProgram(req, src); err != nil {
		return nil, fmt.Errorf("failed to install %s: %w", req.Program, err)
	}
	res.Acquired = append(res.Acquired, req.Program)

	for _, plugin := range req.Plugins.Names() {
		src, err := z.fetch(ctx, req, plugin)
		if err != nil {
			return res, err
		}
		target := req.PluginDir(plugin)
		if err := req.Root.Remove(target); err != nil {
			return res, err
		}
		if err := req.Root.CopyTree(src, target); err != nil {
			return res, fmt.Errorf("failed to install plugin %s: %w", plugin, err)
		}
		res.Acquired = append(res.Acquired, plugin)
	}

	for _, lib := range req.Libraries {
		src, err := z.fetch(ctx, req, lib)
		if err != nil {
			return res, err
		}
		target := req.LibraryDir(lib)
		if err := req.Root.Remove(target); err != nil {
			return res, err
		}
		if err := req.Root.CopyTree(filepath.Join(src, lib), target); err != nil {
			return res, fmt.Errorf("failed to install library %s: %w", lib, err)
		}
		res.Acquired = append(res.Acquired, lib)
	}

	if err := req.Root.Remove(req.TempDir); err != nil {
		logging.Warn("Failed to remove temp directory", "dir", req.TempDir, "error", err)
	}
	return res, nil
}

// fetch downloads name's zipball into the temp dir, unpacks it and
// returns the extracted top directory.
func (z *ZipDownload) fetch(ctx context.Context, req Request, name string) (string, error) {
	archive := filepath.Join(req.TempDir, name+".zip")
	if _, err := z.Fetcher.File(ctx, config.URLFor(z.URLTemplate, name), archive); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}
	if _, err := extract.Unzip(archive, req.TempDir); err != nil {
		return "", fmt.Errorf("failed to unpack %s: %w", name, err)
	}
	return extract.FindDir(req.TempDir, name)
}
