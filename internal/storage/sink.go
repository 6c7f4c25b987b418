package storage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/user/neptun-scraper/internal/domain"
)

// RunDirLayout names the per-run output directory.
const RunDirLayout = "20060102150405"

// Sink persists the records of a finished run.
type Sink interface {
	Name() string
	Write(ctx context.Context, res *domain.Result) error
}

// Pinger is implemented by sinks backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunDir returns the directory below dir holding the files of a run started
// at started.
func RunDir(dir string, started time.Time) string {
	return filepath.Join(dir, started.Format(RunDirLayout))
}
