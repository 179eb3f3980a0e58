// pkg/version/version.go - build information for the installer binaries.

package version

import (
	"fmt"
	"runtime"
)

// These values are private which ensures they can only be set with the build flags.
var (
	version   = "dev"
	revision  = "unknown"
	buildDate = "unknown"
	appName   = "sharkinstall"
)

// Info is a structure with version build information about the current application.
type Info struct {
	App       string `json:"app" yaml:"app"`
	Version   string `json:"version" yaml:"version"`
	Revision  string `json:"revision" yaml:"revision"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	BuildDate string `json:"build_date" yaml:"build_date"`
}

// Version returns a structure with the current version information.
func Version() Info {
	return Info{
		App:       appName,
		Version:   version,
		Revision:  revision,
		GoVersion: runtime.Version(),
		BuildDate: buildDate,
	}
}

// String renders "app version (revision)".
func (i Info) String() string {
	if i.Revision == "" || i.Revision == "unknown" {
		return fmt.Sprintf("%s %s", i.App, i.Version)
	}
	return fmt.Sprintf("%s %s (%s)", i.App, i.Version, i.Revision)
}

// Print outputs the application name and version string.
func Print() {
	fmt.Println(Version().String())
}

// PrintFull prints the application name and detailed version information.
func PrintFull() {
	v := Version()
	fmt.Printf("%s %s\n", v.App, v.Version)
	fmt.Printf("  revision: \t%s\n", v.Revision)
	fmt.Printf("  build date: \t%s\n", v.BuildDate)
	fmt.Printf("  go version: \t%s\n", v.GoVersion)
}
