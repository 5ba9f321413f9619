package summary

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FlatFileStore reads the provider's daily aggregate flat files from its
// S3-compatible endpoint.
type FlatFileStore struct {
	client *s3.Client
	bucket string
}

// FlatFileConfig holds the credentials and location of the flat-file store.
type FlatFileConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewFlatFileStore creates an S3 client against the provider endpoint.
func NewFlatFileStore(ctx context.Context, cfg FlatFileConfig) (*FlatFileStore, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("flat-file credentials not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &FlatFileStore{client: client, bucket: cfg.Bucket}, nil
}

// ListFiles lists object keys under the given prefix, up to maxItems
// (unbounded when maxItems <= 0).
func (s *FlatFileStore) ListFiles(ctx context.Context, prefix string, maxItems int) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing flat files: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
			if maxItems > 0 && len(keys) >= maxItems {
				return keys, nil
			}
		}
	}

	return keys, nil
}

// Open returns a reader for the given object key. The caller must close it.
func (s *FlatFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading flat file %s: %w", key, err)
	}
	return out.Body, nil
}
