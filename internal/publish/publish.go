package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	appLog "alistcal/internal/log"
)

// Artifacts are the outputs of one run, already fully rendered.
type Artifacts struct {
	Feed  string
	Stamp string
}

// Target names where artifacts go.
type Target struct {
	Dir       string
	FeedFile  string
	StampFile string
}

// Write persists both artifacts. The output directory is created when
// missing. Each file is written to a temp file in the same directory and
// renamed into place, feed first, so a failure never leaves a truncated
// feed behind.
func Write(t Target, a Artifacts) error {
	if t.Dir == "" || t.FeedFile == "" || t.StampFile == "" {
		return errors.New("publish: incomplete target")
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	feedPath := filepath.Join(t.Dir, t.FeedFile)
	if err := writeAtomic(feedPath, []byte(a.Feed)); err != nil {
		return fmt.Errorf("publish feed: %w", err)
	}
	stampPath := filepath.Join(t.Dir, t.StampFile)
	if err := writeAtomic(stampPath, []byte(a.Stamp)); err != nil {
		return fmt.Errorf("publish stamp: %w", err)
	}

	appLog.Info("artifacts written", "feed", feedPath, "stamp", stampPath, "bytes", len(a.Feed))
	return nil
}

// writeAtomic writes data to a temp file next to path, syncs it and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// No-op after a successful rename.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// CreateTemp uses 0600; published files must be world-readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
