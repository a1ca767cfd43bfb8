package textextract

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	TempDir   string // where decoded uploads are staged; "" -> os.TempDir()
	MaxPages  int    // in-process fallback only; 0 = no limit
}

type Result struct {
	Text     string
	Pages    int
	Format   string // constants.PDF | constants.TXT
	Method   string // "plain" | "pdftotext" | "pdf-native"
	Duration time.Duration
	Warnings []string
}

// Extractor turns uploaded bytes into plain text.
type Extractor struct {
	cfg       Config
	runner    Runner
	lookPath  func(string) (string, error)
	nativePDF func(path string, maxPages int) (string, int, error)
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftotext.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithLookPath replaces exec.LookPath when probing for pdftotext.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(e *Extractor) { e.lookPath = fn }
}

// WithNativePDF replaces the in-process page-by-page reader.
func WithNativePDF(fn func(path string, maxPages int) (string, int, error)) Option {
	return func(e *Extractor) { e.nativePDF = fn }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	e := &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		lookPath:  exec.LookPath,
		nativePDF: readPDFNative,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectFormat resolves the source format from the filename extension, then the
// declared media type. It returns "" when neither is recognised.
func DetectFormat(filename, mimeType string) string {
	if f := constants.MapExtToFormat(filepath.Ext(filename)); f != "" {
		return f
	}
	return constants.MapMimeToFormat(mimeType)
}

// Extract returns the text content of data. Plain text is decoded permissively
// (invalid UTF-8 is dropped); PDFs go through pdftotext when it is installed and
// the in-process reader otherwise.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, mimeType string) (Result, error) {
	start := time.Now()
	format := DetectFormat(filename, mimeType)
	e.logger.Debug("textextract.start", "filename", filename, "mime", mimeType, "format", format, "bytes", len(data))

	switch format {
	case constants.TXT:
		return Result{
			Text:     DecodePlain(data),
			Pages:    1,
			Format:   constants.TXT,
			Method:   "plain",
			Duration: time.Since(start),
		}, nil
	case constants.PDF:
		res, err := e.extractPDF(ctx, data)
		res.Format = constants.PDF
		res.Duration = time.Since(start)
		if err != nil {
			e.logger.Warn("textextract.pdf.failed", "filename", filename, "error", err, "elapsed_ms", res.Duration.Milliseconds())
			return res, err
		}
		e.logger.Info("textextract.pdf.ok",
			"filename", filename,
			"method", res.Method,
			"pages", res.Pages,
			"chars", len(res.Text),
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		return res, nil
	default:
		e.logger.Warn("textextract.unsupported", "filename", filename, "mime", mimeType)
		return Result{}, newError(ErrUnsupportedFormat, "unsupported file format; use PDF or TXT", nil)
	}
}

// DecodePlain decodes bytes as UTF-8, dropping invalid sequences.
func DecodePlain(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (Result, error) {
	tmp, err := os.CreateTemp(e.cfg.TempDir, "curriculum-*.pdf")
	if err != nil {
		return Result{}, newError(ErrUnreadable, "could not stage pdf", err)
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			e.logger.Warn("textextract.tempfile.remove_failed", "path", path, "error", rmErr)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Result{}, newError(ErrUnreadable, "could not stage pdf", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, newError(ErrUnreadable, "could not stage pdf", err)
	}

	var warns []string
	if bin, lookErr := e.lookPath(e.cfg.Pdftotext); lookErr == nil {
		text, pages, w, runErr := e.pdfToText(ctx, bin, path)
		switch {
		case runErr != nil:
			warns = append(warns, w...)
			e.logger.Warn("textextract.pdftotext.failed", "error", runErr)
		case strings.TrimSpace(text) == "":
			warns = append(warns, "pdftotext produced no text")
		default:
			return Result{Text: normalizeText(text), Pages: pages, Method: "pdftotext", Warnings: warns}, nil
		}
	} else {
		e.logger.Info("textextract.pdftotext.unavailable", "bin", e.cfg.Pdftotext)
	}

	text, pages, err := e.nativePDF(path, e.cfg.MaxPages)
	if err != nil {
		return Result{Method: "pdf-native", Warnings: warns}, newError(ErrUnreadable, "could not read pdf", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{Method: "pdf-native", Pages: pages, Warnings: warns},
			newError(ErrNoExtractableText, "the pdf contains no extractable text (scanned image?)", nil)
	}
	return Result{Text: normalizeText(text), Pages: pages, Method: "pdf-native", Warnings: warns}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, bin, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = DecodePlain(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return text, pages, nil, nil
}
