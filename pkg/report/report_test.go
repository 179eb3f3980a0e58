package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	s := &Summary{
		SessionID:     "abc",
		StartTime:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC),
		Status:        "Failed",
		Strategy:      "wheel",
		InstallDir:    `C:\inst\SHARKtools_20240101`,
		Plugins:       map[string]string{"SHARKtools_ctd_processing": "1.2.0"},
		InstallScript: "call venv\\Scripts\\activate\npip install pandas\n",
		Error:         "Virtuell miljö är inte skapad",
	}
	s.AddInfo("Installerar i mapp: %s", s.InstallDir)
	s.AddInfo("Använder pythonversion: %s (%s)", "3.11.4", `C:\Python311\python.exe`)
	s.Step("acquire", time.Now(), nil)
	s.Step("execute", time.Now(), errors.New("venv missing"))

	dir := filepath.Join(t.TempDir(), "install_history")
	textPath, yamlPath, err := s.Write(dir)
	require.NoError(t, err)

	text, err := os.ReadFile(textPath)
	require.NoError(t, err)
	lines := strings.Split(string(text), "\n")
	assert.Equal(t, `Installerar i mapp: C:\inst\SHARKtools_20240101`, lines[0])
	assert.Equal(t, "Fel: Virtuell miljö är inte skapad", lines[len(lines)-1])

	raw, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "install_script: |")

	loaded, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Failed", loaded.Status)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, "failed", loaded.Steps[1].Status)
	assert.Equal(t, "venv missing", loaded.Steps[1].Error)
	assert.Equal(t, s.InstallScript, loaded.InstallScript)
}
