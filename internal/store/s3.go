package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3BlobStore implements BlobStore on an S3 bucket, keyed as
// <namespace>/<key>. Used by the AWS backend alongside DynamoJobStore.
type S3BlobStore struct {
	client *s3.Client
	bucket string
}

var _ BlobStore = (*S3BlobStore)(nil)

// NewS3BlobStore creates a blob store backed by the given bucket.
// The client should be initialized from the shared AWS config.
func NewS3BlobStore(client *s3.Client, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket}
}

func (s *S3BlobStore) objectKey(namespace, key string) string {
	return namespace + "/" + key
}

// Put uploads data under <namespace>/<key>, replacing any existing object.
func (s *S3BlobStore) Put(ctx context.Context, namespace, key string, data []byte) error {
	if err := safeKey(key); err != nil {
		return err
	}
	objKey := s.objectKey(namespace, key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", objKey, err)
	}
	log.Debug().Str("key", objKey).Int("bytes", len(data)).Msg("Blob uploaded to S3")
	return nil
}

// Get downloads the object at <namespace>/<key>. Returns (nil, nil) when the
// object does not exist.
func (s *S3BlobStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := safeKey(key); err != nil {
		return nil, err
	}
	objKey := s.objectKey(namespace, key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("get s3 object %s: %w", objKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", objKey, err)
	}
	return data, nil
}

// Delete removes the object at <namespace>/<key>. Missing objects are not an error.
func (s *S3BlobStore) Delete(ctx context.Context, namespace, key string) error {
	if err := safeKey(key); err != nil {
		return err
	}
	objKey := s.objectKey(namespace, key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		return fmt.Errorf("delete s3 object %s: %w", objKey, err)
	}
	return nil
}
