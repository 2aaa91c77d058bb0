package jobs

import (
	"context"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/storage"
	"go.uber.org/zap"
)

// TmpCleaner deletes staged uploads older than the retention period
type TmpCleaner struct {
	dir       string
	retention time.Duration
	logger    *zap.Logger
}

// NewTmpCleaner creates a cleaner for dir
func NewTmpCleaner(dir string, retention time.Duration, logger *zap.Logger) *TmpCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TmpCleaner{dir: dir, retention: retention, logger: logger}
}

// ProcessJobs implements the JobProcessor interface
func (c *TmpCleaner) ProcessJobs(_ context.Context) error {
	removed, err := storage.CleanupTmp(c.dir, c.retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.logger.Info("removed stale uploads", zap.String("dir", c.dir), zap.Int("files", removed))
	}
	return nil
}
