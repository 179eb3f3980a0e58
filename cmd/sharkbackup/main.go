// cmd/sharkbackup/main.go

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/sharksmhi/sharktools-install/pkg/backup"
	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/installer"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
	"github.com/sharksmhi/sharktools-install/pkg/state"
	"github.com/sharksmhi/sharktools-install/pkg/utils"
	"github.com/sharksmhi/sharktools-install/pkg/version"
)

func main() {
	utils.PatchWindowsArgs()

	configPath := pflag.String("config", "", "Path to config.yaml (default: next to the executable).")
	source := pflag.String("source", "", "Installation directory to back up.")
	dest := pflag.String("dest", "", "Directory to place the dated backup in.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")
	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv)")
	pflag.Parse()

	logger := logging.New(verbosity > 0)
	if *versionFlag {
		version.Print()
		os.Exit(0)
	}
	if *source == "" || *dest == "" {
		logger.Error("Both --source and --dest are required")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	st, err := state.New(cfg.StateDirectory)
	if err != nil {
		logger.Fatal("%v", err)
	}
	logDir := cfg.LogDirectory
	if logDir == "" {
		logDir = filepath.Join(st.Dir, "logs")
	}
	logCfg := logging.DefaultConfig(logDir)
	logCfg.Component = "sharkbackup"
	if verbosity > 1 {
		logCfg.Level = logging.LevelDebug
	}
	if err := logging.Init(logCfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	ctx := context.Background()

	opts := backup.DefaultOptions()
	opts.MustInclude = []string{cfg.MainProgram}
	if err := os.MkdirAll(st.Dir, 0755); err != nil {
		logger.Fatal("Failed to create %s: %v", st.Dir, err)
	}
	b, err := backup.New(st.Dir, opts, scripts.NewCmdRunner())
	if err == nil {
		err = b.SetSource(*source)
	}
	if err == nil {
		err = b.SetDestination(*dest)
	}
	if err == nil {
		err = b.Run(ctx)
	}
	if err != nil {
		title, body := installer.Describe(err, cfg.Language)
		logger.Error("%s: %s", title, body)
		logging.CloseLogger()
		os.Exit(1)
	}
	logger.Success("Backup klar: %s", b.Destination())
}
