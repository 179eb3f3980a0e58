package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseLines(t *testing.T) {
	m := ParseLines([]string{
		"",
		"# plain comment",
		"#wheel GDAL",
		"# reinstall  pyproj",
		"pandas==2.1.0  # pinned for ctd",
		"PyYAML",
		"-r other.txt",
		"--index-url https://example.org",
		`pip install wheels\GDAL-3.4.3-cp311-cp311-win_amd64.whl`,
		"matplotlib>=3.7; python_version >= \"3.9\"",
		"???",
	}, "req.txt")

	require.Len(t, m.Directives, 2)
	assert.Equal(t, Directive{Kind: DirectiveWheel, Name: "GDAL", Source: "req.txt"}, m.Directives[0])
	assert.Equal(t, Directive{Kind: DirectiveReinstall, Name: "pyproj", Source: "req.txt"}, m.Directives[1])

	require.Len(t, m.Requirements, 4)
	assert.Equal(t, Requirement{Name: "pandas", Spec: "==2.1.0", Line: "pandas==2.1.0", Source: "req.txt"}, m.Requirements[0])
	assert.Equal(t, "pyyaml", m.Requirements[1].Key())

	whl := m.Requirements[2]
	assert.True(t, whl.IsWheel())
	assert.Equal(t, "GDAL", whl.Name)
	assert.Equal(t, "GDAL-3.4.3-cp311-cp311-win_amd64.whl", whl.Wheel)

	assert.Equal(t, "matplotlib", m.Requirements[3].Name)
	assert.True(t, strings.HasPrefix(m.Requirements[3].Spec, ">=3.7"))
}

func TestCollect(t *testing.T) {
	root := filepath.Join(t.TempDir(), "SHARKtools")
	writeFile(t, filepath.Join(root, "requirements.txt"), "pandas==2.1.0\nsharkpylib\n")
	writeFile(t, filepath.Join(root, "plugins", "SHARKtools_ctd_processing", "requirements.txt"),
		"pandas==2.0.3\n#wheel GDAL\nGDAL\n")
	writeFile(t, filepath.Join(root, "plugins", "SHARKtools_qc_sharkweb", "plugin.py"), "")
	writeFile(t, filepath.Join(root, "sharkpylib", "requirements.txt"), "numpy\n")
	writeFile(t, filepath.Join(root, "venv", "Lib", "requirements.txt"), "django\n")

	m, err := Collect(root, "")
	require.NoError(t, err)

	assert.Len(t, m.Files, 3)
	assert.Equal(t, []string{"SHARKtools", "SHARKtools_ctd_processing", "SHARKtools_qc_sharkweb", "sharkpylib"}, m.Subprojects)

	var names []string
	for _, r := range m.Requirements {
		names = append(names, r.Line)
	}
	assert.ElementsMatch(t, []string{"pandas==2.1.0", "sharkpylib", "pandas==2.0.3", "GDAL", "numpy"}, names)
	require.Len(t, m.Directives, 1)
	assert.Equal(t, DirectiveWheel, m.Directives[0].Kind)
}

func TestCollectMissingRoot(t *testing.T) {
	m, err := Collect(filepath.Join(t.TempDir(), "missing"), "requirements.txt")
	require.NoError(t, err)
	assert.Empty(t, m.Requirements)
	assert.Empty(t, m.Subprojects)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "install_history", "requirements.txt")
	require.NoError(t, WriteFile(path, []string{"GDAL", "pandas"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GDAL\npandas", string(data))
}
