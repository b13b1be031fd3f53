package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FSStore implements BlobStore and JobStore on a local directory tree:
// <root>/<namespace>/<key> for blobs and <root>/statuses/<id>.json for jobs.
// It is the default backend for single-host deployments.
type FSStore struct {
	root string
}

// Compile-time interface checks.
var (
	_ BlobStore = (*FSStore)(nil)
	_ JobStore  = (*FSStore)(nil)
)

// NewFSStore creates a filesystem store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	log.Debug().Str("root", dir).Msg("Filesystem store initialized")
	return &FSStore{root: dir}, nil
}

// safeKey rejects keys that could escape the store root. Keys are job IDs
// (UUIDs) in practice, but the store does not rely on that.
func safeKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	for _, seg := range strings.Split(filepath.ToSlash(key), "/") {
		if seg == ".." {
			return fmt.Errorf("key %q contains path traversal", key)
		}
	}
	return nil
}

func (s *FSStore) blobPath(namespace, key string) string {
	return filepath.Join(s.root, namespace, key)
}

// Put writes data under (namespace, key), replacing any existing blob.
func (s *FSStore) Put(_ context.Context, namespace, key string, data []byte) error {
	if err := safeKey(key); err != nil {
		return err
	}
	dir := filepath.Join(s.root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create namespace dir: %w", err)
	}
	if err := os.WriteFile(s.blobPath(namespace, key), data, 0o644); err != nil {
		return fmt.Errorf("write blob %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get reads the blob at (namespace, key). Returns (nil, nil) when absent.
func (s *FSStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	if err := safeKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.blobPath(namespace, key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", namespace, key, err)
	}
	return data, nil
}

// Delete removes the blob at (namespace, key). Missing blobs are not an error.
func (s *FSStore) Delete(_ context.Context, namespace, key string) error {
	if err := safeKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.blobPath(namespace, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *FSStore) jobPath(jobID string) string {
	return filepath.Join(s.root, "statuses", jobID+".json")
}

// PutJob writes the full job record, replacing any previous version.
func (s *FSStore) PutJob(_ context.Context, job *Job) error {
	if err := safeKey(job.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.root, "statuses"), 0o755); err != nil {
		return fmt.Errorf("create statuses dir: %w", err)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := os.WriteFile(s.jobPath(job.ID), data, 0o644); err != nil {
		return fmt.Errorf("write job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob reads a job record. Returns (nil, nil) when the job does not exist.
func (s *FSStore) GetJob(_ context.Context, jobID string) (*Job, error) {
	if err := safeKey(jobID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.jobPath(jobID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", jobID, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	job.ID = jobID
	return &job, nil
}
