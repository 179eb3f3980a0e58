// pkg/config/config.go - configuration settings for the SHARKtools installer.

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up next to the executable when no path is given.
const ConfigFileName = "config.yaml"

// Strategy names how program code is acquired.
type Strategy string

const (
	StrategyWheel Strategy = "wheel"
	StrategyZip   Strategy = "zip"
	StrategyGit   Strategy = "git"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Repo is a git repository cloned below the install directory, optionally
// inside Subdir.
type Repo struct {
	URL    string `yaml:"URL"`
	Subdir string `yaml:"Subdir,omitempty"`
}

// UnmarshalYAML accepts a plain URL string or a [subdir, url] pair as well
// as the mapping form.
func (r *Repo) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.URL = node.Value
		return nil
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("repo pair must have two elements, got %d", len(node.Content))
		}
		r.Subdir = node.Content[0].Value
		r.URL = node.Content[1].Value
		return nil
	default:
		type plain Repo
		return node.Decode((*plain)(r))
	}
}

// Name is the directory a clone of the repo ends up in.
func (r Repo) Name() string {
	base := r.URL
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".git")
}

// Configuration holds the configurable options for the installer in YAML format.
type Configuration struct {
	InstallRootDirectory string            `yaml:"InstallRootDirectory"`
	PythonPath           string            `yaml:"PythonPath"`
	Strategy             Strategy          `yaml:"Strategy"`
	Plugins              map[string]string `yaml:"Plugins,omitempty"`
	WheelsDirectory      string            `yaml:"WheelsDirectory"`
	Requirements         []string          `yaml:"Requirements,omitempty"`
	Wheels               []string          `yaml:"Wheels,omitempty"`
	Repos                []Repo            `yaml:"Repos,omitempty"`
	ZipURLTemplate       string            `yaml:"ZipURLTemplate"`
	GitURLTemplate       string            `yaml:"GitURLTemplate"`
	PluginListingURL     string            `yaml:"PluginListingURL"`
	ProjectName          string            `yaml:"ProjectName"`
	MainProgram          string            `yaml:"MainProgram"`
	Libraries            []string          `yaml:"Libraries,omitempty"`
	RequirementsFileName string            `yaml:"RequirementsFileName"`
	InstallFirst         []string          `yaml:"InstallFirst,omitempty"`
	VenvName             string            `yaml:"VenvName"`
	PythonTag            string            `yaml:"PythonTag,omitempty"`
	PythonBits           int               `yaml:"PythonBits,omitempty"`
	MinPythonVersion     string            `yaml:"MinPythonVersion"`
	ReuseVenv            bool              `yaml:"ReuseVenv"`
	DatedInstallDir      bool              `yaml:"DatedInstallDir"`
	Language             string            `yaml:"Language"`
	LogLevel             string            `yaml:"LogLevel"`
	LogDirectory         string            `yaml:"LogDirectory,omitempty"`
	StateDirectory       string            `yaml:"StateDirectory,omitempty"`
	HTTPTimeoutSeconds   int               `yaml:"HTTPTimeoutSeconds"`
}

// GetDefaultConfig provides default configuration values.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		InstallRootDirectory: `C:\sharktools_installs`,
		Strategy:             StrategyWheel,
		WheelsDirectory:      "wheels",
		ZipURLTemplate:       "https://github.com/sharksmhi/{name}/zipball/master/",
		GitURLTemplate:       "https://github.com/sharksmhi/{name}.git",
		PluginListingURL:     "https://github.com/sharksmhi/",
		ProjectName:          "SHARKtools",
		MainProgram:          "SHARKtools",
		Libraries:            []string{"sharkpylib"},
		RequirementsFileName: "requirements.txt",
		InstallFirst:         []string{"pyproj"},
		VenvName:             "venv",
		MinPythonVersion:     "3.11",
		DatedInstallDir:      true,
		Language:             "sv",
		LogLevel:             "INFO",
		HTTPTimeoutSeconds:   120,
	}
}

// DefaultPath returns config.yaml next to the running executable.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(filepath.Dir(exe), ConfigFileName)
}

// LoadConfig reads path on top of the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Configuration, error) {
	cfg := GetDefaultConfig()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("Configuration file does not exist, using defaults: %s", path)
		cfg.resolveRelative(filepath.Dir(path))
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	cfg.resolveRelative(filepath.Dir(path))
	return cfg, nil
}

// resolveRelative anchors relative wheel paths at the config directory.
func (c *Configuration) resolveRelative(base string) {
	if c.WheelsDirectory != "" && !filepath.IsAbs(c.WheelsDirectory) && !isWindowsAbs(c.WheelsDirectory) {
		c.WheelsDirectory = filepath.Join(base, c.WheelsDirectory)
	}
	for i, w := range c.Wheels {
		if !filepath.IsAbs(w) && !isWindowsAbs(w) {
			c.Wheels[i] = filepath.Join(c.WheelsDirectory, w)
		}
	}
}

// SaveConfig writes the configuration to path.
func SaveConfig(cfg *Configuration, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// Validate reports every problem found as one ErrInvalidConfig error.
func (c *Configuration) Validate() error {
	var problems []string

	if c.InstallRootDirectory == "" {
		problems = append(problems, "InstallRootDirectory is empty")
	} else if !filepath.IsAbs(c.InstallRootDirectory) && !isWindowsAbs(c.InstallRootDirectory) {
		problems = append(problems, fmt.Sprintf("InstallRootDirectory must be absolute: %s", c.InstallRootDirectory))
	}

	switch c.Strategy {
	case StrategyWheel, StrategyZip, StrategyGit:
	default:
		problems = append(problems, fmt.Sprintf("unknown Strategy %q", c.Strategy))
	}

	for _, r := range c.Repos {
		if !strings.HasSuffix(r.URL, ".git") {
			problems = append(problems, fmt.Sprintf("not a valid repo: %s", r.URL))
		}
	}
	if c.Strategy == StrategyZip && !strings.Contains(c.ZipURLTemplate, "{name}") {
		problems = append(problems, "ZipURLTemplate must contain {name}")
	}
	if c.Strategy == StrategyGit && !strings.Contains(c.GitURLTemplate, "{name}") {
		problems = append(problems, "GitURLTemplate must contain {name}")
	}
	if c.ProjectName == "" {
		problems = append(problems, "ProjectName is empty")
	}
	if c.PythonBits != 0 && c.PythonBits != 32 && c.PythonBits != 64 {
		problems = append(problems, fmt.Sprintf("PythonBits must be 32 or 64, got %d", c.PythonBits))
	}
	if c.HTTPTimeoutSeconds < 0 {
		problems = append(problems, "HTTPTimeoutSeconds must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// URLFor expands {name} in a URL template.
func URLFor(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}

// isWindowsAbs recognises drive-letter paths on any host.
func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}
