package store

import (
	"context"
	"testing"
	"time"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return s
}

func TestFSStoreBlobRoundTrip(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, NamespaceVideos, "job-1", []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := s.Get(ctx, NamespaceVideos, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("got %q", data)
	}

	if err := s.Delete(ctx, NamespaceVideos, "job-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	data, err = s.Get(ctx, NamespaceVideos, "job-1")
	if err != nil || data != nil {
		t.Errorf("expected (nil, nil) after delete, got (%v, %v)", data, err)
	}
}

func TestFSStoreGetAbsent(t *testing.T) {
	s := newTestFSStore(t)
	data, err := s.Get(context.Background(), NamespaceResults, "no-such-key")
	if err != nil {
		t.Fatalf("absent blob must not be an error: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data, got %q", data)
	}
}

func TestFSStoreNamespaceIsolation(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, NamespaceVideos, "job-1", []byte("video")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := s.Get(ctx, NamespaceResults, "job-1")
	if err != nil || data != nil {
		t.Errorf("same key in a different namespace should be absent, got (%q, %v)", data, err)
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, NamespaceVideos, "../escape", []byte("x")); err == nil {
		t.Error("expected error for traversal key")
	}
	if _, err := s.Get(ctx, NamespaceVideos, "a/../../b"); err == nil {
		t.Error("expected error for traversal key")
	}
	if err := s.Put(ctx, NamespaceVideos, "", []byte("x")); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestFSStoreJobRoundTrip(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	job := &Job{
		ID:        "abc-123",
		Status:    StatusProcessing,
		Stage:     "converting",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}

	got, err := s.GetJob(ctx, "abc-123")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ID != "abc-123" || got.Status != StatusProcessing || got.Stage != "converting" {
		t.Errorf("unexpected job: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt not preserved: %v != %v", got.CreatedAt, now)
	}
}

func TestFSStoreJobAbsent(t *testing.T) {
	s := newTestFSStore(t)
	job, err := s.GetJob(context.Background(), "missing")
	if err != nil {
		t.Fatalf("absent job must not be an error: %v", err)
	}
	if job != nil {
		t.Errorf("expected nil job, got %+v", job)
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusComplete, true},
		{StatusError, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}
