package acquire

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/download"
	"github.com/sharksmhi/sharktools-install/pkg/scope"
	"github.com/sharksmhi/sharktools-install/pkg/scripts"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newRequest(t *testing.T, plugins selection.Selection) Request {
	t.Helper()
	install := filepath.Join(t.TempDir(), "SHARKtools_20240101")
	require.NoError(t, os.MkdirAll(install, 0755))
	root, err := scope.New(install, scope.DefaultMarker)
	require.NoError(t, err)
	program := filepath.Join(install, "SHARKtools")
	return Request{
		Root:       root,
		InstallDir: install,
		ProgramDir: program,
		PluginsDir: filepath.Join(program, "plugins"),
		TempDir:    filepath.Join(install, "_temp_sharktools"),
		Program:    "SHARKtools",
		Plugins:    plugins,
		Libraries:  []string{"sharkpylib"},
		Target:     wheel.Target{Tag: "311", Bits: 64},
	}
}

func zipServer(t *testing.T, archives map[string][]byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.Split(strings.Trim(r.URL.Path, "/"), "/")[0]
		data, ok := archives[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/{name}/zipball/master/"
}

func TestZipDownloadKeepsExistingPlugins(t *testing.T) {
	tmpl := zipServer(t, map[string][]byte{
		"SHARKtools": zipBytes(t, map[string]string{
			"sharksmhi-SHARKtools-aaa/main.py":                        "import sharktools",
			"sharksmhi-SHARKtools-aaa/requirements.txt":               "pandas",
			"sharksmhi-SHARKtools-aaa/plugins/plugin_template/x.py":   "",
			"sharksmhi-SHARKtools-aaa/plugins/SHARKtools_old/new.txt": "from program",
		}),
		"SHARKtools_ctd_processing": zipBytes(t, map[string]string{
			"sharksmhi-SHARKtools_ctd_processing-bbb/requirements.txt": "numpy",
		}),
		"sharkpylib": zipBytes(t, map[string]string{
			"sharksmhi-sharkpylib-ccc/setup.py":               "",
			"sharksmhi-sharkpylib-ccc/sharkpylib/__init__.py": "",
		}),
	})

	req := newRequest(t, selection.Selection{"SHARKtools_ctd_processing": ""})
	write(t, filepath.Join(req.PluginsDir, "SHARKtools_old", "old.txt"), "kept")
	write(t, filepath.Join(req.ProgramDir, "stale.py"), "removed")

	z := &ZipDownload{Fetcher: download.New(5 * time.Second), URLTemplate: tmpl}
	res, err := z.Acquire(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"SHARKtools", "SHARKtools_ctd_processing", "sharkpylib"}, res.Acquired)
	assert.Equal(t, []string{req.ProgramDir}, res.SourceRoots)
	assert.FileExists(t, filepath.Join(req.ProgramDir, "main.py"))
	assert.NoFileExists(t, filepath.Join(req.ProgramDir, "stale.py"))
	assert.FileExists(t, filepath.Join(req.PluginsDir, "plugin_template", "x.py"))
	assert.FileExists(t, filepath.Join(req.PluginsDir, "SHARKtools_old", "old.txt"))
	assert.FileExists(t, filepath.Join(req.PluginsDir, "SHARKtools_ctd_processing", "requirements.txt"))
	assert.FileExists(t, filepath.Join(req.ProgramDir, "sharkpylib", "__init__.py"))
	assert.NoDirExists(t, req.TempDir)
}

func TestZipDownloadFailure(t *testing.T) {
	tmpl := zipServer(t, map[string][]byte{})
	req := newRequest(t, nil)
	z := &ZipDownload{Fetcher: download.New(time.Second), URLTemplate: tmpl}
	_, err := z.Acquire(context.Background(), req)
	var se *download.StatusError
	require.True(t, errors.As(err, &se))
}

func TestSaveAsideAndRestore(t *testing.T) {
	req := newRequest(t, nil)
	write(t, filepath.Join(req.PluginsDir, "SHARKtools_a", "a.txt"), "a")
	write(t, filepath.Join(req.ProgramDir, "sharkpylib", "__init__.py"), "")

	s, err := saveAside(req)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(req.TempDir, savedDirName, "plugins", "SHARKtools_a", "a.txt"))

	require.NoError(t, req.Root.Remove(req.ProgramDir))
	require.NoError(t, s.restore(req))
	assert.FileExists(t, filepath.Join(req.PluginsDir, "SHARKtools_a", "a.txt"))
	assert.FileExists(t, filepath.Join(req.ProgramDir, "sharkpylib", "__init__.py"))
	assert.NoDirExists(t, filepath.Join(req.TempDir, savedDirName))
}

func TestGitCloneOrPull(t *testing.T) {
	req := newRequest(t, selection.Selection{"SHARKtools_ctd_processing": ""})
	require.NoError(t, os.MkdirAll(filepath.Join(req.ProgramDir, ".git"), 0755))

	git := &scripts.FakeCommander{}
	g := &GitCloneOrPull{Git: git, URLTemplate: "https://github.com/sharksmhi/{name}.git"}
	res, err := g.Acquire(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []scripts.FakeCall{
		{Dir: req.ProgramDir, Name: "git", Args: []string{"reset", "--hard"}},
		{Dir: req.ProgramDir, Name: "git", Args: []string{"pull"}},
		{Dir: req.PluginsDir, Name: "git", Args: []string{"clone", "https://github.com/sharksmhi/SHARKtools_ctd_processing.git", "SHARKtools_ctd_processing"}},
		{Dir: req.InstallDir, Name: "git", Args: []string{"clone", "https://github.com/sharksmhi/sharkpylib.git", "sharkpylib"}},
	}, git.Calls)
	assert.Equal(t, []string{req.ProgramDir, filepath.Join(req.InstallDir, "sharkpylib")}, res.SourceRoots)
	assert.DirExists(t, req.PluginsDir)
}

func TestGitConfiguredRepos(t *testing.T) {
	req := newRequest(t, nil)
	req.Repos = []config.Repo{{URL: "https://github.com/sharksmhi/ctdpy.git", Subdir: "libs"}}

	git := &scripts.FakeCommander{Respond: func(c scripts.FakeCall) (string, error) {
		return "", errors.New("fatal: repository not found")
	}}
	_, err := (&GitCloneOrPull{Git: git}).Acquire(context.Background(), req)
	require.Error(t, err)
	require.Len(t, git.Calls, 1)
	assert.Equal(t, filepath.Join(req.InstallDir, "libs"), git.Calls[0].Dir)
}

func TestLocalWheel(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"SHARKtools_ctd_processing-1.0.0-py3-none-any.whl",
		"SHARKtools_ctd_processing-1.10.0-py3-none-any.whl",
		"SHARKtools_ctd_processing-1.9.0-py3-none-any.whl",
	} {
		write(t, filepath.Join(dir, f), f)
	}
	idx, err := wheel.BuildIndex(wheel.NewStore(dir))
	require.NoError(t, err)
	l := &LocalWheel{Index: idx}

	req := newRequest(t, selection.Selection{"SHARKtools_ctd_processing": ""})
	res, err := l.Acquire(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "SHARKtools_ctd_processing-1.10.0-py3-none-any.whl")}, res.Wheels)

	req.Plugins = selection.Selection{"SHARKtools_ctd_processing": "1.0.0"}
	res, err = l.Acquire(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "SHARKtools_ctd_processing-1.0.0-py3-none-any.whl")}, res.Wheels)

	req.Plugins = selection.Selection{"SHARKtools_ctd_processing": "2.0"}
	_, err = l.Acquire(context.Background(), req)
	assert.ErrorIs(t, err, selection.ErrUnknownVersion)

	req.Plugins = selection.Selection{"SHARKtools_nope": ""}
	_, err = l.Acquire(context.Background(), req)
	assert.ErrorIs(t, err, selection.ErrUnknownPlugin)
}

func TestLocalWheelPicksBuildForTarget(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"pluginA-1.2-cp311-cp311-win_amd64.whl",
		"pluginA-1.2-cp39-cp39-win32.whl",
		"pluginA-1.3-cp39-cp39-win32.whl",
	} {
		write(t, filepath.Join(dir, f), f)
	}
	idx, err := wheel.BuildIndex(wheel.NewStore(dir))
	require.NoError(t, err)
	l := &LocalWheel{Index: idx}

	req := newRequest(t, selection.Selection{"pluginA": "1.2"})
	res, err := l.Acquire(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "pluginA-1.2-cp311-cp311-win_amd64.whl")}, res.Wheels)

	// 1.3 has no 64-bit build, so the newest usable version is 1.2.
	req.Plugins = selection.Selection{"plugina": ""}
	res, err = l.Acquire(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "pluginA-1.2-cp311-cp311-win_amd64.whl")}, res.Wheels)

	req.Plugins = selection.Selection{"pluginA": "1.3"}
	_, err = l.Acquire(context.Background(), req)
	assert.ErrorIs(t, err, wheel.ErrNoArtifactFound)

	req.Target = wheel.Target{Tag: "39", Bits: 32}
	res, err = l.Acquire(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "pluginA-1.3-cp39-cp39-win32.whl")}, res.Wheels)
}
