// Package staging maintains the work directory that holds per-attempt
// export scratch space.
package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/logging"
)

// AttemptDirPrefix names the scratch directories the exporter creates
// under the work directory.
const AttemptDirPrefix = "export-"

// SweepResult contains the outcome of a scratch directory sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// SweepAttemptDirs removes export scratch directories left behind by a
// previous run. Directories younger than minAge are kept so a sweep
// racing a live export never deletes its working files.
func SweepAttemptDirs(workDir string, minAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: workDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-minAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), AttemptDirPrefix) {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove export scratch directory",
					logging.String("path", dirPath),
					logging.Error(err))
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed leftover export scratch directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())))
		}
	}

	return result
}
