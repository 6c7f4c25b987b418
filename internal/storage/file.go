package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/domain"
)

// FileSink writes each run as indented JSON below a base directory.
type FileSink struct {
	dir    string
	logger *zap.Logger
}

func NewFileSink(dir string, logger *zap.Logger) *FileSink {
	return &FileSink{dir: dir, logger: logger}
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file the records of res are written to.
func (s *FileSink) Path(res *domain.Result) string {
	return filepath.Join(RunDir(s.dir, res.StartedAt), res.Target+".json")
}

// Write stores paged results as a page number to records object and the
// rest as a flat array. Flat image records are ordered by downloads,
// ascending, with unknown counts first.
func (s *FileSink) Write(ctx context.Context, res *domain.Result) error {
	var payload any
	switch records := res.Records(); {
	case res.Paged:
		payload = res.Pages
	case records == nil:
		payload = []domain.Record{}
	default:
		payload = byDownloads(records)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s results: %w", res.Target, err)
	}

	path := s.Path(res)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.Info("results written", zap.String("path", path), zap.Int("records", res.Count()))
	return nil
}

func byDownloads(records []domain.Record) []domain.Record {
	downloads := func(r domain.Record) int64 {
		img, ok := r.(*domain.ImageRecord)
		if !ok || img.Downloads == nil {
			return -1
		}
		return *img.Downloads
	}
	out := make([]domain.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return downloads(out[i]) < downloads(out[j]) })
	return out
}
