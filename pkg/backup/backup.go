// pkg/backup/backup.go - copy an existing installation aside with robocopy

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
)

var (
	// ErrBackupNotEmpty is returned when the dated destination already has content.
	ErrBackupNotEmpty = errors.New("backup directory must be empty")
	// ErrMissingSubdir is returned when the source lacks a required subdirectory.
	ErrMissingSubdir = errors.New("source directory is missing a required subdirectory")
	// ErrNoSource is returned when the destination is set before the source.
	ErrNoSource = errors.New("no source directory set")
)

// DefaultExclude are directories never copied.
var DefaultExclude = []string{".git", ".idea", "venv", "SHARKtoolbox_install", "__pycache__"}

// Options controls what a backup requires and skips.
type Options struct {
	MustInclude []string
	Exclude     []string
}

// DefaultOptions requires the main program directory in the source.
func DefaultOptions() Options {
	return Options{MustInclude: []string{"SHARKtools"}, Exclude: DefaultExclude}
}

// Backup copies Source into a dated directory below the destination.
type Backup struct {
	workingDir string
	opts       Options
	runner     scripts.Runner
	source     string
	dest       string
	now        func() time.Time
}

// New returns a Backup writing its script into workingDir.
func New(workingDir string, opts Options, runner scripts.Runner) (*Backup, error) {
	info, err := os.Stat(workingDir)
	if err != nil {
		return nil, fmt.Errorf("working directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working path is not a directory: %s", workingDir)
	}
	return &Backup{workingDir: workingDir, opts: opts, runner: runner, now: time.Now}, nil
}

// Source returns the directory to back up.
func (b *Backup) Source() string { return b.source }

// Destination returns the dated backup directory.
func (b *Backup) Destination() string { return b.dest }

// SetSource sets the directory to back up and clears the destination.
// Every missing required subdirectory is reported.
func (b *Backup) SetSource(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	var result *multierror.Error
	for _, name := range b.opts.MustInclude {
		if fi, err := os.Stat(filepath.Join(path, name)); err != nil || !fi.IsDir() {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrMissingSubdir, name))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	b.source = path
	b.dest = ""
	return nil
}

// SetDestination picks backup_<source>_<YYYYMMDD> below path. A path that
// already names a backup of the source is replaced by its dated sibling.
func (b *Backup) SetDestination(path string) error {
	if b.source == "" {
		return ErrNoSource
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	prefix := "backup_" + filepath.Base(b.source)
	subdir := prefix + "_" + b.now().Format("20060102")
	base := filepath.Base(path)
	switch {
	case base == subdir:
	case strings.HasPrefix(base, prefix):
		path = filepath.Join(filepath.Dir(path), subdir)
	default:
		path = filepath.Join(path, subdir)
	}
	b.dest = path
	return nil
}

// Run writes backup.bat and runs it. The destination must be empty.
func (b *Backup) Run(ctx context.Context) error {
	if b.source == "" {
		return ErrNoSource
	}
	if b.dest == "" {
		return errors.New("no backup directory set")
	}
	if err := os.MkdirAll(b.dest, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	entries, err := os.ReadDir(b.dest)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrBackupNotEmpty, b.dest)
	}

	script := scripts.BackupScript(b.source, b.dest, b.opts.Exclude)
	path := filepath.Join(b.workingDir, "backup.bat")
	if err := script.WriteFile(path); err != nil {
		return err
	}
	logging.Info("Creating backup", "source", b.source, "destination", b.dest)
	if err := b.runner.Run(ctx, path); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	logging.Info("Backup created successfully", "backup_dir", b.dest)
	return nil
}
