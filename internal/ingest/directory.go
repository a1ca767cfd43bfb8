package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
)

// FileResult is the per-file outcome of a directory ingest.
type FileResult struct {
	Path string
	Outcome
	Err string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// IngestPath reads one file from disk and ingests it for the tenant. The file
// name becomes the title.
func (p *Pipeline) IngestPath(ctx context.Context, tenantID uuid.UUID, path string) (Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("abs path: %w", err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return Outcome{}, fmt.Errorf("unsupported or missing extension: %q", constants.NormalizeExt(filepath.Ext(abs)))
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Outcome{}, fmt.Errorf("read: %w", err)
	}
	return p.IngestFile(ctx, FileRequest{
		Metadata: Metadata{TenantID: tenantID},
		Data:     data,
		Filename: filepath.Base(abs),
	})
}

// IngestDirectory walks root, skips hidden entries if requested, and ingests
// every file with a supported extension. Per-file failures are collected in the
// results; only a failing walk is returned as an error.
func (p *Pipeline) IngestDirectory(ctx context.Context, tenantID uuid.UUID, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		out, err := p.IngestPath(ctx, tenantID, path)
		if err != nil {
			results = append(results, FileResult{Path: path, Outcome: out, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{Path: path, Outcome: out})
		if out.Status == constants.DocumentStatusReady {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	p.Logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
