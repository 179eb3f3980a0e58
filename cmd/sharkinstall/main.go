// cmd/sharkinstall/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sharksmhi/sharktools-install/pkg/acquire"
	"github.com/sharksmhi/sharktools-install/pkg/blocking"
	"github.com/sharksmhi/sharktools-install/pkg/catalog"
	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/download"
	"github.com/sharksmhi/sharktools-install/pkg/installer"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/python"
	"github.com/sharksmhi/sharktools-install/pkg/reporter"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
	"github.com/sharksmhi/sharktools-install/pkg/state"
	"github.com/sharksmhi/sharktools-install/pkg/utils"
	"github.com/sharksmhi/sharktools-install/pkg/version"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

var logger *logging.Logger

func main() {
	utils.PatchWindowsArgs()

	configPath := pflag.String("config", "", "Path to config.yaml (default: next to the executable).")
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")
	root := pflag.String("root", "", "Install root directory.")
	pythonPath := pflag.String("python", "", "Path to python.exe.")
	strategy := pflag.String("strategy", "", "Acquisition strategy: wheel, zip or git.")
	listPlugins := pflag.Bool("list-plugins", false, "List the available plugins and exit.")
	findPython := pflag.Bool("find-python", false, "Print the interpreter that would be used and exit.")
	dryRun := pflag.Bool("dry-run", false, "Write the install scripts without running them.")
	var plugins selection.Flag
	plugins.RegisterFlags(nil)

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv)")
	pflag.Parse()

	logger = logging.New(verbosity > 0)

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	if *strategy != "" {
		cfg.Strategy = config.Strategy(*strategy)
	}
	switch verbosity {
	case 0:
	case 1:
		cfg.LogLevel = "INFO"
	default:
		cfg.LogLevel = "DEBUG"
	}

	if *showConfig {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			logger.Fatal("Failed to serialize configuration: %v", err)
		}
		fmt.Print(string(data))
		os.Exit(0)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("%v", err)
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
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	if err := logging.Init(logCfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()
	logging.Info("Starting installer", "version", version.Version().String(), "strategy", string(cfg.Strategy))

	ctx := context.Background()

	finder := python.NewFinder(st.LoadPythonPath)
	if *findPython {
		path, ok := finder.Find()
		if !ok {
			fail(cfg, python.ErrMissingInterpreter)
		}
		fmt.Println(path)
		return
	}

	dl := download.New(time.Duration(cfg.HTTPTimeoutSeconds) * time.Second)
	store := wheel.NewStore(cfg.WheelsDirectory)
	strat, source, err := setupStrategy(ctx, cfg, dl, store, st)
	if err != nil {
		fail(cfg, err)
	}

	if *listPlugins {
		printPlugins(source)
		return
	}

	saved, err := st.LoadSelections()
	if err != nil {
		logging.Warn("Ignoring saved selections", "error", err)
	}

	req := installer.Request{
		InstallRoot: firstNonEmpty(*root, saved.InstallRootDirectory, cfg.InstallRootDirectory),
		PythonPath:  firstNonEmpty(*pythonPath, cfg.PythonPath),
	}
	if req.PythonPath == "" {
		if found, ok := finder.Find(); ok {
			req.PythonPath = found
		}
	}
	switch {
	case plugins.HasSelection():
		if req.Plugins, err = plugins.Selection(); err != nil {
			fail(cfg, err)
		}
	case len(saved.Plugins) > 0:
		req.Plugins = selection.Selection(saved.Plugins)
	default:
		req.Plugins = selection.Selection(cfg.Plugins)
	}

	inst := installer.New(installerOptions(cfg, strat, source, store, st, *dryRun))
	sum, err := inst.Run(ctx, req)
	if err != nil {
		fail(cfg, err)
	}

	if err := st.SaveSelections(state.Selections{
		InstallRootDirectory: req.InstallRoot,
		PythonPath:           req.PythonPath,
		Plugins:              req.Plugins,
	}); err != nil {
		logging.Warn("Failed to save selections", "error", err)
	}
	if *dryRun {
		logger.Success("Scripts written to %s", inst.Layout().HistoryDir)
		return
	}
	logger.Success("SHARKtools installed in %s", sum.InstallDir)
}

// installerOptions wires the production collaborators. The wheel store
// resolves .whl references and #wheel directives for every strategy.
func installerOptions(cfg *config.Configuration, strat acquire.Strategy, source selection.Source,
	store *wheel.Store, st *state.Store, dryRun bool) installer.Options {
	return installer.Options{
		Config:    cfg,
		Strategy:  strat,
		Runner:    scripts.NewCmdRunner(),
		Commander: scripts.ExecCommander{},
		Resolver:  store,
		Plugins:   source,
		Blocking:  blocking.New(),
		State:     st,
		Reporter:  reporter.NewConsoleReporter(logger),
		DryRun:    dryRun,
	}
}

// setupStrategy returns the acquisition strategy of cfg and the source of
// known plugins it installs from.
func setupStrategy(ctx context.Context, cfg *config.Configuration, dl *download.Downloader,
	store *wheel.Store, st *state.Store) (acquire.Strategy, selection.Source, error) {
	if cfg.Strategy == config.StrategyWheel {
		idx, err := wheel.BuildIndex(store)
		if err != nil {
			return nil, nil, err
		}
		return &acquire.LocalWheel{Index: idx}, idx, nil
	}

	names, err := catalog.New(cfg.PluginListingURL, dl, st).Plugins(ctx)
	if err != nil {
		logging.Warn("No plugin listing, selections are not checked", "error", err)
	}
	var source selection.Source
	if names != nil {
		source = selection.Catalog(names)
	}

	switch cfg.Strategy {
	case config.StrategyZip:
		return &acquire.ZipDownload{Fetcher: dl, URLTemplate: cfg.ZipURLTemplate}, source, nil
	case config.StrategyGit:
		return &acquire.GitCloneOrPull{Git: scripts.ExecCommander{}, URLTemplate: cfg.GitURLTemplate}, source, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown strategy %q", config.ErrInvalidConfig, cfg.Strategy)
}

func printPlugins(source selection.Source) {
	switch s := source.(type) {
	case *wheel.Index:
		for _, name := range s.Plugins() {
			fmt.Printf("%s %v\n", name, s.Versions(name))
		}
	case selection.Catalog:
		for _, name := range s {
			fmt.Println(name)
		}
	default:
		logger.Warning("No plugins available")
	}
}

func fail(cfg *config.Configuration, err error) {
	title, body := installer.Describe(err, cfg.Language)
	logging.Error("Installer failed", "kind", string(installer.KindOf(err)), "error", err)
	logger.Error("%s: %s", title, body)
	if log := logging.CurrentLogFile(); log != "" {
		logger.Info("Log: %s", log)
	}
	logging.CloseLogger()
	os.Exit(1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
