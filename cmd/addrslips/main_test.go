package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI runs one command line against a config path that does not exist,
// so defaults apply regardless of the working directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	err := run(ctx, full, &stdout, &stderr)
	return stdout.String(), err
}

func writeTestPNG(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "map.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 24))))
	return p
}

func TestRun_InitAndInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spring.addrslips")

	_, err := runCLI(t, "init", path, "--name", "Spring Canvass", "--target", "1500")
	require.NoError(t, err)
	require.FileExists(t, path)

	out, err := runCLI(t, "--format", "json", "info", path)
	require.NoError(t, err)

	var info infoView
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "Spring Canvass", info.Name)
	assert.Equal(t, uint64(1500), info.TargetAddressCount)
	assert.Empty(t, info.Areas)
	assert.False(t, info.CreatedAt.IsZero())
}

func TestRun_AreaWorkflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ward.addrslips")

	out, err := runCLI(t, "--format", "json", "add-area", path,
		"--name", "Old Town", "--color", "#ff0000", "--image", writeTestPNG(t))
	require.NoError(t, err)
	var area areaView
	require.NoError(t, json.Unmarshal([]byte(out), &area))
	assert.Equal(t, "Old Town", area.Name)
	assert.Equal(t, "#ff0000", area.Color)
	assert.Equal(t, "imported", area.State)

	areaFlag := []string{"--area", jsonNumber(area.ID)}

	out, err = runCLI(t, append([]string{"set-state", path, "--state", "streets_detected"}, areaFlag...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "streets_detected")

	out, err = runCLI(t, append([]string{"--format", "json", "teams", path}, areaFlag...)...)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, err = runCLI(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Name:    ward")
	assert.Contains(t, out, "Old Town")
	assert.Contains(t, out, "streets_detected")
}

func jsonNumber(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.addrslips")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad format", []string{"--format", "xml", "info", path}, "invalid format"},
		{"no project", []string{"info"}, "no project given"},
		{"bad state", []string{"set-state", path, "--area", "1", "--state", "done"}, "invalid area state"},
		{"missing area", []string{"teams", path, "--area", "42"}, "area not found"},
		{"bad color", []string{"add-area", path, "--name", "x", "--color", "red", "--image", "x.png"}, "invalid color"},
		{"missing parent", []string{"info", filepath.Join(dir, "nope", "p.addrslips")}, "parent directory does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ADDRSLIPS_PROJECT_PATH", "")
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_ProjectPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.addrslips")
	t.Setenv("ADDRSLIPS_PROJECT_PATH", path)

	_, err := runCLI(t, "init", "--target", "7")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "addrslips.prom")
	t.Setenv("ADDRSLIPS_METRICS_PATH", metricsPath)

	_, err := runCLI(t, "init", filepath.Join(dir, "m.addrslips"))
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `addrslips_snapshots_total{result="success"} 1`),
		"metrics textfile:\n%s", data)
}
