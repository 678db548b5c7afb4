// Package archive exports recorded test results to Parquet files in S3.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

// ResultSource supplies the results to archive. labdb.TestStore satisfies it.
type ResultSource interface {
	ResultsBetween(ctx context.Context, from, to time.Time) ([]labdb.TestResult, error)
}

// Writer renders results into a local file.
type Writer interface {
	WriteResults(ctx context.Context, path string, results []labdb.TestResult) error
}

// Uploader copies a local file to object storage under key.
type Uploader interface {
	Upload(ctx context.Context, key, path string) error
}

// Report describes one archive run.
type Report struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Count int       `json:"count"`
	Key   string    `json:"key,omitempty"`
	URI   string    `json:"uri,omitempty"`
	Bytes int64     `json:"bytes,omitempty"`
}

// Archiver moves a window of test results into object storage.
type Archiver struct {
	source   ResultSource
	writer   Writer
	uploader Uploader
	breaker  *CircuitBreaker
	bucket   string
	prefix   string
	workDir  string
	newID    func() (uuid.UUID, error)
	now      func() time.Time
}

// NewArchiver wires an archiver. A nil breaker disables upload suspension.
func NewArchiver(cfg labdb.ArchiveConfig, source ResultSource, writer Writer, uploader Uploader, breaker *CircuitBreaker) *Archiver {
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Archiver{
		source:   source,
		writer:   writer,
		uploader: uploader,
		breaker:  breaker,
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		workDir:  workDir,
		newID:    uuid.NewV7,
		now:      time.Now,
	}
}

// ObjectKey is <prefix>/results/<YYYY-MM-DD of from>/<id>.parquet.
func ObjectKey(prefix string, from time.Time, id string) string {
	return path.Join(strings.Trim(prefix, "/"), "results", from.UTC().Format(time.DateOnly), id+".parquet")
}

// Archive exports results that started in [from, to). An empty window
// uploads nothing.
func (a *Archiver) Archive(ctx context.Context, from, to time.Time) (*Report, error) {
	report := &Report{From: from.UTC(), To: to.UTC()}
	if a.bucket == "" {
		return nil, labdb.NewValidationError("archive.s3Bucket", "is required")
	}
	if a.breaker.IsOpen() {
		return nil, labdb.NewStorageError("archive uploads suspended after repeated failures", nil)
	}

	results, err := a.source.ResultsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	report.Count = len(results)
	if len(results) == 0 {
		zap.S().Infow("archive: no results in window", "from", report.From, "to", report.To)
		return report, nil
	}

	id, err := a.newID()
	if err != nil {
		return nil, fmt.Errorf("generate object id: %w", err)
	}
	local := filepath.Join(a.workDir, id.String()+".parquet")
	defer os.Remove(local)

	if err := a.writer.WriteResults(ctx, local, results); err != nil {
		return nil, fmt.Errorf("write parquet: %w", err)
	}
	if info, err := os.Stat(local); err == nil {
		report.Bytes = info.Size()
	}

	report.Key = ObjectKey(a.prefix, from, id.String())
	if err := a.uploader.Upload(ctx, report.Key, local); err != nil {
		a.breaker.RecordFailure()
		return nil, err
	}
	a.breaker.RecordSuccess()
	report.URI = fmt.Sprintf("s3://%s/%s", a.bucket, report.Key)

	zap.S().Infow("archive: uploaded results", "count", report.Count, "uri", report.URI, "bytes", report.Bytes)
	return report, nil
}

// Run archives one window every interval until ctx is done. The first window
// covers the interval before the call. A failed window is folded into the
// next one, so nothing is skipped while uploads are failing or suspended.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	from := a.now().Add(-interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			from = a.runWindow(ctx, from, a.now())
		}
	}
}

// runWindow archives [from, to) and returns the start of the next window.
func (a *Archiver) runWindow(ctx context.Context, from, to time.Time) time.Time {
	if _, err := a.Archive(ctx, from, to); err != nil {
		zap.S().Warnw("archive: run failed", "from", from.UTC(), "to", to.UTC(), "error", err)
		return from
	}
	return to
}
