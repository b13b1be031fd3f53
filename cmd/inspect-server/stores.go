package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Tamerlan12345/vision/internal/config"
	"github.com/Tamerlan12345/vision/internal/store"
)

// newStores builds the blob and job stores for the configured backend.
// The filesystem backend keeps single-host deployments dependency-free;
// the AWS backend splits blobs to S3 and job records to DynamoDB.
func newStores(ctx context.Context, cfg *config.Config) (store.BlobStore, store.JobStore, error) {
	switch cfg.StoreBackend {
	case config.StoreAWS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("loading AWS config: %w", err)
		}
		blobs := store.NewS3BlobStore(s3.NewFromConfig(awsCfg), cfg.S3Bucket)
		jobs := store.NewDynamoJobStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable)
		return blobs, jobs, nil
	default:
		fs, err := store.NewFSStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("creating filesystem store: %w", err)
		}
		return fs, fs, nil
	}
}
