package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sharksmhi/SHARKtools/zipball/master/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PK-zip-bytes"))
	})
	mux.HandleFunc("/sharksmhi/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sharksmhi/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<a>SHARKtools_ctd_processing</a>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGet(t *testing.T) {
	srv := newServer(t)
	d := New(5 * time.Second)

	body, err := d.Get(context.Background(), srv.URL+"/sharksmhi/")
	require.NoError(t, err)
	assert.Contains(t, string(body), "SHARKtools_ctd_processing")

	_, err = d.Get(context.Background(), srv.URL+"/sharksmhi/missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.False(t, errors.Is(err, ErrNetworkUnavailable))
}

func TestFile(t *testing.T) {
	srv := newServer(t)
	dest := filepath.Join(t.TempDir(), "_temp_sharktools", "SHARKtools.zip")

	n, err := New(0).File(context.Background(), srv.URL+"/sharksmhi/SHARKtools/zipball/master/", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("PK-zip-bytes")), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "PK-zip-bytes", string(data))
}

func TestNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(time.Second).Get(context.Background(), url)
	require.ErrorIs(t, err, ErrNetworkUnavailable)

	_, err = New(time.Second).Get(context.Background(), "")
	require.Error(t, err)
}

func TestAll(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	paths, err := New(0).All(context.Background(), map[string]string{
		"SHARKtools": srv.URL + "/sharksmhi/SHARKtools/zipball/master/",
		"skipped":    "",
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SHARKtools": filepath.Join(dir, "SHARKtools.zip")}, paths)

	_, err = New(0).All(context.Background(), map[string]string{"nope": srv.URL + "/sharksmhi/nope/zipball/master/"}, dir)
	require.Error(t, err)
}
