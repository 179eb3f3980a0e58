// pkg/installer/errors.go - error taxonomy and localized descriptions for the front end

package installer

import (
	"errors"

	"github.com/sharksmhi/sharktools-install/pkg/backup"
	"github.com/sharksmhi/sharktools-install/pkg/blocking"
	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/download"
	"github.com/sharksmhi/sharktools-install/pkg/python"
	"github.com/sharksmhi/sharktools-install/pkg/scope"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

var (
	ErrMissingVirtualEnvironment = errors.New("virtual environment missing")
	ErrCannotRunProgram          = errors.New("cannot run program")
	ErrNoPythonSelected          = errors.New("no python interpreter selected")
	ErrNoInstallRoot             = errors.New("no install root selected")
	ErrInvalidTransition         = errors.New("invalid installer state transition")
)

// runCheckError explains why the toolbox cannot be started.
type runCheckError struct {
	sv, en string
}

func (e *runCheckError) Error() string { return ErrCannotRunProgram.Error() + ": " + e.en }

func (e *runCheckError) Unwrap() error { return ErrCannotRunProgram }

// Kind classifies an installer error.
type Kind string

const (
	KindNone                      Kind = ""
	KindMissingInterpreter        Kind = "missing_interpreter"
	KindUnsupportedPython         Kind = "unsupported_python"
	KindNoPythonSelected          Kind = "no_python_selected"
	KindNoInstallRoot             Kind = "no_install_root"
	KindMissingVirtualEnvironment Kind = "missing_virtual_environment"
	KindCannotRunProgram          Kind = "cannot_run_program"
	KindUnsafePath                Kind = "unsafe_path"
	KindNetworkUnavailable        Kind = "network_unavailable"
	KindNoArtifactFound           Kind = "no_artifact_found"
	KindUnknownPlugin             Kind = "unknown_plugin"
	KindUnknownVersion            Kind = "unknown_version"
	KindProgramRunning            Kind = "program_running"
	KindInvalidConfig             Kind = "invalid_config"
	KindBackupNotEmpty            Kind = "backup_not_empty"
	KindInvalidTransition         Kind = "invalid_transition"
	KindUnknown                   Kind = "unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNoPythonSelected, KindNoPythonSelected},
	{ErrNoInstallRoot, KindNoInstallRoot},
	{python.ErrMissingInterpreter, KindMissingInterpreter},
	{python.ErrUnsupportedVersion, KindUnsupportedPython},
	{ErrMissingVirtualEnvironment, KindMissingVirtualEnvironment},
	{ErrCannotRunProgram, KindCannotRunProgram},
	{scope.ErrUnsafePath, KindUnsafePath},
	{download.ErrNetworkUnavailable, KindNetworkUnavailable},
	{wheel.ErrNoArtifactFound, KindNoArtifactFound},
	{selection.ErrUnknownPlugin, KindUnknownPlugin},
	{selection.ErrUnknownVersion, KindUnknownVersion},
	{blocking.ErrProgramRunning, KindProgramRunning},
	{config.ErrInvalidConfig, KindInvalidConfig},
	{backup.ErrBackupNotEmpty, KindBackupNotEmpty},
	{ErrInvalidTransition, KindInvalidTransition},
}

// KindOf returns the category of err, KindUnknown for anything
// uncategorized and KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

type text struct{ title, body string }

var descriptions = map[string]map[Kind]text{
	"sv": {
		KindMissingInterpreter:        {"Python", "Ingen giltig python.exe hittades"},
		KindUnsupportedPython:         {"Python", "Python 3.11 eller senare krävs"},
		KindNoPythonSelected:          {"Python", "Ingen sökväg till python vald"},
		KindNoInstallRoot:             {"Installationsmapp", "Ingen installationsmapp vald!"},
		KindMissingVirtualEnvironment: {"Virtuell miljö", "Virtuell pythonmiljö saknas. Skapa en miljö innan du installerar paket!"},
		KindCannotRunProgram:          {"Kan inte starta programmet", ""},
		KindUnsafePath:                {"Ogiltig sökväg", "Sökvägen ligger utanför installationsmappen"},
		KindNetworkUnavailable:        {"Nätverk", "Kunde inte ansluta till nätverket"},
		KindNoArtifactFound:           {"Wheel", "Ingen passande wheel-fil hittades"},
		KindUnknownPlugin:             {"Plugin", "Ogilltig plugin"},
		KindUnknownVersion:            {"Plugin", "Ogilltig version för plugin"},
		KindProgramRunning:            {"SHARKtools körs", "Stäng SHARKtools innan du installerar"},
		KindInvalidConfig:             {"Konfiguration", "Ogiltig konfigurationsfil"},
		KindBackupNotEmpty:            {"Backupmapp", "Backupmappen måste vara tom"},
		KindInvalidTransition:         {"Installation", "Välj installationsmapp, python och plugins i tur och ordning"},
		KindUnknown:                   {"Fel", ""},
	},
	"en": {
		KindMissingInterpreter:        {"Python", "No valid python.exe found"},
		KindUnsupportedPython:         {"Python", "Python 3.11 or later is required"},
		KindNoPythonSelected:          {"Python", "No path to python selected"},
		KindNoInstallRoot:             {"Install directory", "No install directory selected"},
		KindMissingVirtualEnvironment: {"Virtual environment", "Virtual python environment missing. Create an environment before installing packages!"},
		KindCannotRunProgram:          {"Cannot run program", ""},
		KindUnsafePath:                {"Unsafe path", "The path is outside the install directory"},
		KindNetworkUnavailable:        {"Network", "Could not connect to the network"},
		KindNoArtifactFound:           {"Wheel", "No matching wheel file found"},
		KindUnknownPlugin:             {"Plugin", "Invalid plugin"},
		KindUnknownVersion:            {"Plugin", "Invalid version for plugin"},
		KindProgramRunning:            {"SHARKtools is running", "Close SHARKtools before installing"},
		KindInvalidConfig:             {"Configuration", "Invalid configuration file"},
		KindBackupNotEmpty:            {"Backup directory", "The backup directory must be empty"},
		KindInvalidTransition:         {"Installation", "Select install directory, python and plugins in order"},
		KindUnknown:                   {"Error", ""},
	},
}

// Describe returns a localized title and text for err. Swedish is the
// default language. Uncategorized errors carry their full message.
func Describe(err error, lang string) (string, string) {
	if err == nil {
		return "", ""
	}
	table, ok := descriptions[lang]
	if !ok {
		lang = "sv"
		table = descriptions[lang]
	}
	kind := KindOf(err)
	t := table[kind]

	var rc *runCheckError
	switch {
	case errors.As(err, &rc):
		if lang == "en" {
			t.body = rc.en
		} else {
			t.body = rc.sv
		}
	case t.body == "":
		t.body = err.Error()
	}
	return t.title, t.body
}
