// pkg/report/report.go - summary files written at the end of an install

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sharksmhi/sharktools-install/pkg/utils"
)

const (
	TextFileName = "summary.txt"
	YAMLFileName = "summary.yaml"
)

// StepRecord is one completed or failed install step.
type StepRecord struct {
	Name     string `yaml:"name"`
	Status   string `yaml:"status"`
	Duration string `yaml:"duration,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// Summary describes one install run.
type Summary struct {
	SessionID     string              `yaml:"session_id"`
	StartTime     time.Time           `yaml:"start_time"`
	EndTime       time.Time           `yaml:"end_time"`
	Status        string              `yaml:"status"`
	Strategy      string              `yaml:"strategy"`
	InstallDir    string              `yaml:"install_directory"`
	Python        string              `yaml:"python"`
	PythonVersion string              `yaml:"python_version,omitempty"`
	Plugins       map[string]string   `yaml:"plugins,omitempty"`
	Packages      []string            `yaml:"packages,omitempty"`
	Reinstall     []string            `yaml:"reinstall,omitempty"`
	Skipped       []string            `yaml:"skipped_local,omitempty"`
	MissingWheels []string            `yaml:"missing_wheels,omitempty"`
	Steps         []StepRecord        `yaml:"steps"`
	InstallScript utils.LiteralString `yaml:"install_script,omitempty"`
	Error         utils.LiteralString `yaml:"error,omitempty"`
	LogFile       string              `yaml:"log_file,omitempty"`

	// Info holds the human readable lines of summary.txt.
	Info []string `yaml:"-"`
}

// AddInfo appends a line to the text summary.
func (s *Summary) AddInfo(format string, args ...interface{}) {
	s.Info = append(s.Info, fmt.Sprintf(format, args...))
}

// Step records the outcome of a step started at start.
func (s *Summary) Step(name string, start time.Time, err error) {
	rec := StepRecord{Name: name, Status: "completed", Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
	}
	s.Steps = append(s.Steps, rec)
}

// Text renders summary.txt.
func (s *Summary) Text() string {
	lines := append([]string(nil), s.Info...)
	if s.Error != "" {
		lines = append(lines, "", "Fel: "+strings.TrimSpace(string(s.Error)))
	}
	return strings.Join(lines, "\n")
}

// Write stores summary.txt and summary.yaml in dir and returns their paths.
func (s *Summary) Write(dir string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create summary directory: %w", err)
	}
	textPath := filepath.Join(dir, TextFileName)
	if err := os.WriteFile(textPath, []byte(s.Text()), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", TextFileName, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return textPath, "", fmt.Errorf("failed to serialize summary: %w", err)
	}
	yamlPath := filepath.Join(dir, YAMLFileName)
	if err := os.WriteFile(yamlPath, data, 0644); err != nil {
		return textPath, "", fmt.Errorf("failed to write %s: %w", YAMLFileName, err)
	}
	return textPath, yamlPath, nil
}

// Load reads a summary.yaml.
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &s, nil
}
