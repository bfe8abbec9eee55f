package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"newsflow/config"
)

// NewS3Client creates an S3 client for the cold-storage endpoint.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ColdS3URL,
				SigningRegion:     cfg.ColdS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ColdS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ColdS3Key, cfg.ColdS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// ColdStore mirrors day archive files into durable bulk storage.
type ColdStore struct {
	client  *s3.Client
	bucket  string
	keyBase string
}

// NewColdStore creates the cold store on top of an S3 client.
func NewColdStore(client *s3.Client, cfg *config.Config) *ColdStore {
	return &ColdStore{client: client, bucket: cfg.ColdS3Bucket, keyBase: cfg.ColdS3KeyBase}
}

// CopyDayArchive uploads the day's archive file under a deterministic key.
// PutObject overwrites, so re-copying the same day after another append is
// idempotent.
func (c *ColdStore) CopyDayArchive(ctx context.Context, day string, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read day archive: %w", err)
	}
	key := fmt.Sprintf("%s/%s.jsonl", c.keyBase, day)
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload day archive: %w", err)
	}
	return nil
}
