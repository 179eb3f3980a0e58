//go:build windows

package python

import (
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-version"
	"golang.org/x/sys/windows/registry"
)

const pythonCoreKey = `SOFTWARE\Python\PythonCore`

// registryInterpreters lists executables registered under PEP 514, newest first.
func registryInterpreters() []string {
	var paths []string
	for _, root := range []registry.Key{registry.CURRENT_USER, registry.LOCAL_MACHINE} {
		paths = append(paths, interpretersUnder(root)...)
	}
	return paths
}

func interpretersUnder(root registry.Key) []string {
	k, err := registry.OpenKey(root, pythonCoreKey, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil
	}
	defer k.Close()

	tags, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}
	sort.SliceStable(tags, func(i, j int) bool {
		vi, erri := version.NewVersion(tags[i])
		vj, errj := version.NewVersion(tags[j])
		if erri != nil || errj != nil {
			return tags[i] > tags[j]
		}
		return vi.GreaterThan(vj)
	})

	var paths []string
	for _, tag := range tags {
		ik, err := registry.OpenKey(root, pythonCoreKey+`\`+tag+`\InstallPath`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		if exe, _, err := ik.GetStringValue("ExecutablePath"); err == nil && exe != "" {
			paths = append(paths, exe)
		} else if dir, _, err := ik.GetStringValue(""); err == nil && dir != "" {
			paths = append(paths, filepath.Join(dir, "python.exe"))
		}
		ik.Close()
	}
	return paths
}
