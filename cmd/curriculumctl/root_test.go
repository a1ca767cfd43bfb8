package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		tenantFlag = ""
		envFileFlag = ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"extract", "segment", "parse", "migrate", "ingest-dir", "watch", "export-plan"} {
		assert.True(t, names[want], want)
	}
}

func TestExtractCmd_PrintsText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.txt", "Primer grado\r\nLengua\r\n")
	out, err := execute(t, "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Primer grado")
	assert.Contains(t, out, "Lengua")
}

func TestExtractCmd_RejectsUnsupportedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scan.png", "not really a png")
	_, err := execute(t, "extract", path)
	assert.Error(t, err)
}

func TestSegmentCmd_PrintsJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.txt", "Segundo grado\nMATEMÁTICA\nsumas y restas")
	out, err := execute(t, "segment", path)
	require.NoError(t, err)

	start := bytes.IndexByte([]byte(out), '[')
	require.GreaterOrEqual(t, start, 0)
	var segs []segmentView
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &segs))
	require.NotEmpty(t, segs)
	require.NotNil(t, segs[0].Grade)
	assert.Equal(t, "2", *segs[0].Grade)
}

func TestSegmentCmd_InvalidTenant(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.txt", "Primer grado\nLengua")
	_, err := execute(t, "--tenant", "nope", "segment", path)
	assert.ErrorContains(t, err, "--tenant")
}

func TestLoadEnv_ExplicitFileMustExist(t *testing.T) {
	assert.Error(t, loadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := writeFile(t, t.TempDir(), "test.env", "CURRICULUMCTL_TEST_VALUE=loaded\n")
	t.Setenv("CURRICULUMCTL_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("CURRICULUMCTL_TEST_VALUE"))
	require.NoError(t, loadEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CURRICULUMCTL_TEST_VALUE"))
}

func TestIngestDirCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", filepath.Join(dir, "cur.db"))
	t.Setenv("AI_PROVIDER", "heuristic")

	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.Mkdir(docs, 0o755))
	writeFile(t, docs, "uno.txt", "Primer grado\nLENGUA\nleer cuentos")
	writeFile(t, docs, ".oculto.txt", "Primer grado\nLENGUA\nnada")

	out, err := execute(t, "ingest-dir", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "uno.txt")
	assert.NotContains(t, out, ".oculto.txt")
	assert.Contains(t, out, "succeeded=1")
}

func TestConsume_StopsWhenChannelsClose(t *testing.T) {
	paths := make(chan string, 2)
	errs := make(chan error, 1)
	paths <- "a.txt"
	paths <- "b.pdf"
	errs <- os.ErrPermission
	close(paths)
	close(errs)

	var got []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		consume(context.Background(), nil, paths, errs, func(p string) { got = append(got, p) })
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not return")
	}
	assert.Equal(t, []string{"a.txt", "b.pdf"}, got)
}

func TestOpenApp_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", "")
	_, err := openApp(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
