package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"retail-backend/internal/config"
)

// ReportArchive stores exported report files in an S3-compatible bucket (R2, MinIO, S3).
type ReportArchive struct {
	client *s3.Client
	bucket string
}

// ArchivedReport is one object under the reports prefix.
type ArchivedReport struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// NewReportArchive returns nil when no bucket is configured.
func NewReportArchive(ctx context.Context, cfg *config.Config) (*ReportArchive, error) {
	if cfg.Reports.Bucket == "" {
		log.Printf("[ReportArchive] No bucket configured, report archiving disabled")
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Reports.Region),
	}
	if cfg.Reports.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Reports.AccessKey,
			cfg.Reports.SecretKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure report storage: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Reports.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Reports.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ReportArchive{client: client, bucket: cfg.Reports.Bucket}, nil
}

// Upload writes one object.
func (a *ReportArchive) Upload(ctx context.Context, key, contentType string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// List returns the objects stored under prefix in key order.
func (a *ReportArchive) List(ctx context.Context, prefix string) ([]ArchivedReport, error) {
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	reports := make([]ArchivedReport, 0, len(out.Contents))
	for _, obj := range out.Contents {
		r := ArchivedReport{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			r.LastModified = *obj.LastModified
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Ping checks that the bucket is reachable.
func (a *ReportArchive) Ping(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	return err
}
