package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultBasePath is the base directory for local buckets.
	DefaultBasePath = "/var/lib/burrow/buckets"
)

// LocalStore implements ObjectStore on the host filesystem. Each sandbox
// gets a live directory (what the container mounts) and a backup directory
// that Sync copies into.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new local object store driver.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		basePath = DefaultBasePath
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create buckets directory: %w", err)
	}

	return &LocalStore{
		basePath: basePath,
	}, nil
}

// LivePath returns the directory a sandbox mounts as its data path.
func (s *LocalStore) LivePath(sandboxID string) string {
	return filepath.Join(s.basePath, "live", sandboxID)
}

// BackupPath returns the directory Sync copies sandbox data into.
func (s *LocalStore) BackupPath(sandboxID string) string {
	return filepath.Join(s.basePath, "backup", sandboxID)
}

// Mount ensures the live directory for the prefix exists. The bucket and
// path arguments keep the signature aligned with remote drivers; the local
// driver only uses the prefix.
func (s *LocalStore) Mount(ctx context.Context, bucket, path, prefix string) error {
	livePath := filepath.Join(s.basePath, "live", prefix)
	if err := os.MkdirAll(livePath, 0755); err != nil {
		return fmt.Errorf("failed to create live directory: %w", err)
	}
	return nil
}

// Sync copies the sandbox's live directory into its backup directory.
func (s *LocalStore) Sync(ctx context.Context, sandboxID string) SyncResult {
	livePath := s.LivePath(sandboxID)
	backupPath := s.BackupPath(sandboxID)

	if _, err := os.Stat(livePath); os.IsNotExist(err) {
		return SyncResult{Err: fmt.Errorf("no live data for sandbox %s", sandboxID)}
	}

	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return SyncResult{Err: fmt.Errorf("failed to create backup directory: %w", err)}
	}

	if err := copyTree(ctx, livePath, backupPath); err != nil {
		return SyncResult{Err: fmt.Errorf("failed to copy sandbox data: %w", err)}
	}

	return SyncResult{Success: true, LastSync: time.Now().UTC()}
}

// Purge removes both the live and backup directories for a sandbox.
func (s *LocalStore) Purge(ctx context.Context, sandboxID string) error {
	for _, dir := range []string{s.LivePath(sandboxID), s.BackupPath(sandboxID)} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to purge %s: %w", dir, err)
		}
	}
	return nil
}

// copyTree copies src into dst recursively, checking for cancellation
// between files so a hung sync can be abandoned by its caller.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		if !info.Mode().IsRegular() {
			return nil // skip sockets, pipes, symlinks
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
