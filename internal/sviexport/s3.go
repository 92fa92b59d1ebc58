package sviexport

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/svidx/svi-fetch/internal/svi"
)

// S3Config configures an S3-compatible destination, mirroring
// cc-backend's pkg/archive/parquet.S3TargetConfig.
type S3Config struct {
	Endpoint     string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
}

// S3Sink uploads each fetched Table as a CSV object, keyed by the
// fetch timestamp.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink builds an S3Sink against cfg, using static credentials
// the same way cc-backend's NewS3Target does.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("SVIEXPORT/S3 > empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("SVIEXPORT/S3 > load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Sink{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Sink) Write(ctx context.Context, fetchedAt int64, table svi.Table) error {
	body, err := encodeCSV(fetchedAt, table)
	if err != nil {
		return fmt.Errorf("SVIEXPORT/S3 > encode: %w", err)
	}

	key := fmt.Sprintf("svi/%d.csv", fetchedAt)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("SVIEXPORT/S3 > put object %s: %w", key, err)
	}
	return nil
}
