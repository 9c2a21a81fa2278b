package sync

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// s3Uploads bounds the concurrent PutObject calls of one sync run.
const s3Uploads = 4

// S3Destination writes exports to an S3-compatible bucket under a key prefix.
type S3Destination struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3opts...)
	return &S3Destination{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Name identifies the destination in logs.
func (d *S3Destination) Name() string { return "s3://" + path.Join(d.bucket, d.prefix) }

// Key returns the object key for an export file.
func (d *S3Destination) Key(name string) string {
	return path.Join(d.prefix, name)
}

// Write uploads every file as "<prefix>/<name>".
func (d *S3Destination) Write(ctx context.Context, files []File) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s3Uploads)
	for _, f := range files {
		g.Go(func() error {
			_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(d.bucket),
				Key:         aws.String(d.Key(f.Name)),
				Body:        bytes.NewReader(f.Data),
				ContentType: aws.String("text/csv; charset=utf-8"),
			})
			if err != nil {
				return fmt.Errorf("s3 put object %s: %w", f.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
