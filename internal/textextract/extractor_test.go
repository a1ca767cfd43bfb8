package textextract

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
)

// mockRunner is a test double for Runner. It records the staged path so tests can
// check the temp file is gone after Extract returns.
type mockRunner struct {
	stdout   []byte
	stderr   []byte
	err      error
	calls    int
	lastPath string
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	m.calls++
	if len(args) >= 2 {
		m.lastPath = args[len(args)-2]
	}
	return m.stdout, m.stderr, m.err
}

func found(string) (string, error)   { return "/usr/bin/pdftotext", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func newTestExtractor(t *testing.T, opts ...Option) (*Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	return NewExtractor(Config{TempDir: dir}, nil, opts...), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged pdf must be removed")
}

func TestExtract_PlainTextIsIdentity(t *testing.T) {
	e, _ := newTestExtractor(t)
	inputs := []string{
		"",
		"Tercer grado\nMATEMÁTICA\nSumar y restar hasta 100.",
		"  leading and trailing  \n\n",
		"Educación Física\r\nJuegos",
	}
	for _, in := range inputs {
		res, err := e.Extract(context.Background(), []byte(in), "plan.txt", "text/plain")
		require.NoError(t, err)
		assert.Equal(t, in, res.Text)
		assert.Equal(t, constants.TXT, res.Format)
		assert.Equal(t, "plain", res.Method)
	}
}

func TestExtract_PlainTextDropsInvalidBytes(t *testing.T) {
	e, _ := newTestExtractor(t)
	data := []byte("Lengua\xff\xfe y literatura")
	res, err := e.Extract(context.Background(), data, "notes", "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Lengua y literatura", res.Text)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e, _ := newTestExtractor(t)
	_, err := e.Extract(context.Background(), []byte{0x1, 0x2}, "photo.png", "image/png")
	require.Error(t, err)

	var tee *TextExtractionError
	require.ErrorAs(t, err, &tee)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_PDFPrefersPdftotext(t *testing.T) {
	runner := &mockRunner{stdout: []byte("Primer grado\nMATEMÁTICA\fpágina dos\f")}
	native := func(string, int) (string, int, error) {
		t.Fatal("native reader must not run when pdftotext succeeds")
		return "", 0, nil
	}
	e, dir := newTestExtractor(t, WithRunner(runner), WithLookPath(found), WithNativePDF(native))

	res, err := e.Extract(context.Background(), []byte("%PDF-1.4"), "plan.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Primer grado\nMATEMÁTICA\npágina dos", res.Text)
	assert.Equal(t, 1, runner.calls)
	assert.NotEmpty(t, runner.lastPath)
	assertDirEmpty(t, dir)
}

func TestExtract_PDFFallsBackWhenToolFails(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1"), stderr: []byte("Syntax Error")}
	nativeCalls := 0
	native := func(path string, _ int) (string, int, error) {
		nativeCalls++
		_, statErr := os.Stat(path)
		require.NoError(t, statErr, "temp file must exist while reading")
		return "Segundo grado\nLengua", 1, nil
	}
	e, dir := newTestExtractor(t, WithRunner(runner), WithLookPath(found), WithNativePDF(native))

	res, err := e.Extract(context.Background(), []byte("%PDF-1.4"), "plan.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-native", res.Method)
	assert.Equal(t, 1, nativeCalls)
	assert.Contains(t, res.Warnings, "Syntax Error")
	assertDirEmpty(t, dir)
}

func TestExtract_PDFFallsBackWhenToolMissing(t *testing.T) {
	runner := &mockRunner{}
	native := func(string, int) (string, int, error) { return "Cuarto grado", 1, nil }
	e, dir := newTestExtractor(t, WithRunner(runner), WithLookPath(missing), WithNativePDF(native))

	res, err := e.Extract(context.Background(), []byte("%PDF-1.4"), "", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-native", res.Method)
	assert.Equal(t, 0, runner.calls)
	assertDirEmpty(t, dir)
}

func TestExtract_PDFWithoutText(t *testing.T) {
	runner := &mockRunner{stdout: []byte("  \f \n")}
	native := func(string, int) (string, int, error) { return "\n\n", 3, nil }
	e, dir := newTestExtractor(t, WithRunner(runner), WithLookPath(found), WithNativePDF(native))

	_, err := e.Extract(context.Background(), []byte("%PDF-1.4"), "scan.pdf", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoExtractableText)
	assertDirEmpty(t, dir)
}

func TestExtract_PDFUnreadable(t *testing.T) {
	native := func(string, int) (string, int, error) { return "", 0, errors.New("malformed xref") }
	e, dir := newTestExtractor(t, WithLookPath(missing), WithNativePDF(native))

	_, err := e.Extract(context.Background(), []byte("garbage"), "broken.pdf", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Contains(t, err.Error(), "malformed xref")
	assertDirEmpty(t, dir)
}

func TestNormalizeTextComposesAccents(t *testing.T) {
	decomposed := "Matema\u0301tica"
	assert.Equal(t, "Matem\u00e1tica", normalizeText(decomposed))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, constants.PDF, DetectFormat("Plan.PDF", ""))
	assert.Equal(t, constants.TXT, DetectFormat("plan.text", ""))
	assert.Equal(t, constants.TXT, DetectFormat("upload", "text/markdown"))
	assert.Equal(t, constants.PDF, DetectFormat("upload.bin", "application/pdf"))
	assert.Equal(t, "", DetectFormat("upload.docx", "application/msword"))
}
