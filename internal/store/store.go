// Package store provides persistent blob and job-status storage for the
// asynchronous video inspection pipeline. Jobs and results survive process
// restarts; the polling handler reads what the background worker wrote.
//
// Two interfaces cover the two access patterns: BlobStore for opaque payloads
// (uploaded videos, analysis results) and JobStore for the small, frequently
// polled job records. The filesystem backend serves both for zero-infra
// deployments; S3 and DynamoDB back them in AWS.
package store

import (
	"context"
	"time"
)

// Blob namespaces. A job's records are keyed by its unique ID within each
// namespace; no cross-key coordination is ever needed.
const (
	// NamespaceVideos holds raw uploaded video payloads.
	NamespaceVideos = "videos"

	// NamespaceResults holds terminal analysis results, stored separately
	// from the job record: status is polled frequently and cheaply, the
	// result is fetched once on completion.
	NamespaceResults = "results"
)

// JobTTL is the retention period for job records in backends that support
// expiry (DynamoDB TTL attribute).
const JobTTL = 24 * time.Hour

// Status is a job lifecycle state.
type Status string

const (
	// StatusPending means the job is recorded but the worker has not started.
	StatusPending Status = "pending"

	// StatusProcessing means the worker owns the job and is advancing stages.
	StatusProcessing Status = "processing"

	// StatusComplete is the successful terminal state.
	StatusComplete Status = "complete"

	// StatusError is the failed terminal state. Failed jobs are never
	// retried; the caller resubmits as a new job.
	StatusError Status = "error"
)

// Terminal reports whether no further transition can occur from s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Job is the persisted bookkeeping record for one video inspection.
//
// The background worker exclusively owns the mutable fields after submission;
// the polling handler only reads. Stage is a free-form progress label that is
// only meaningful while Status is processing, or as the point of failure when
// Status is error.
type Job struct {
	ID           string    `json:"id" dynamodbav:"-"`
	Status       Status    `json:"status" dynamodbav:"status"`
	Stage        string    `json:"stage,omitempty" dynamodbav:"stage,omitempty"`
	ErrorMessage string    `json:"message,omitempty" dynamodbav:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updatedAt"`
}

// BlobStore persists opaque payloads under (namespace, key).
// Get returns (nil, nil) when the key does not exist.
type BlobStore interface {
	Put(ctx context.Context, namespace, key string, data []byte) error
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Delete(ctx context.Context, namespace, key string) error
}

// JobStore persists job records. GetJob returns (nil, nil) when the job does
// not exist. PutJob performs full-record replacement (upsert semantics).
type JobStore interface {
	PutJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
}
