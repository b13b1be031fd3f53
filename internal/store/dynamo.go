package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants. Jobs use a single-table layout with one record per
// job; the TTL attribute auto-deletes records after JobTTL.
const (
	jobPKPrefix = "JOB#"
	jobSK       = "STATUS"
)

// DynamoJobStore implements JobStore on a DynamoDB table with a PK/SK schema
// and an `expiresAt` TTL attribute.
type DynamoJobStore struct {
	client    *dynamodb.Client
	tableName string
}

var _ JobStore = (*DynamoJobStore)(nil)

// NewDynamoJobStore creates a job store for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoJobStore(client *dynamodb.Client, tableName string) *DynamoJobStore {
	return &DynamoJobStore{client: client, tableName: tableName}
}

func jobPK(jobID string) string {
	return jobPKPrefix + jobID
}

// PutJob writes the full job record with upsert semantics.
func (s *DynamoJobStore) PutJob(ctx context.Context, job *Job) error {
	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	// Key and TTL attributes overwrite any conflicting keys from the record.
	item["PK"] = &types.AttributeValueMemberS{Value: jobPK(job.ID)}
	item["SK"] = &types.AttributeValueMemberS{Value: jobSK}
	item["expiresAt"] = &types.AttributeValueMemberN{
		Value: strconv.FormatInt(time.Now().Add(JobTTL).Unix(), 10),
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put job %s: %w", job.ID, err)
	}

	log.Debug().
		Str("job", job.ID).
		Str("status", string(job.Status)).
		Str("stage", job.Stage).
		Msg("Job record written to DynamoDB")
	return nil
}

// GetJob reads a job record. Returns (nil, nil) when the job does not exist.
func (s *DynamoJobStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: jobPK(jobID)},
			"SK": &types.AttributeValueMemberS{Value: jobSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var job Job
	if err := attributevalue.UnmarshalMap(out.Item, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	job.ID = jobID
	return &job, nil
}
