package skyline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3SinkConfig configures the S3 chart sink.
type S3SinkConfig struct {
	// Bucket receives the rendered artifacts. Required.
	Bucket string

	// Prefix is prepended to every object key.
	Prefix string

	// Region of the bucket. Empty falls back to the SDK's resolution chain
	// (environment, shared config, instance metadata).
	Region string

	// Endpoint overrides the S3 endpoint. Setting it switches the client to
	// path-style addressing, which is what S3-compatible object stores
	// expect.
	Endpoint string

	// AccessKeyID and SecretAccessKey override the SDK credential chain.
	// Leave both empty to use ambient credentials.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Sink uploads rendered artifacts to an S3 bucket. Uploads are atomic by
// construction: an object only becomes visible once its PUT completes, so a
// failed write never leaves a partial artifact.
type S3Sink struct {
	client s3PutClient
	bucket string
	prefix string
}

// s3PutClient is the slice of the S3 API the sink needs.
type s3PutClient interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Sink creates an S3-backed chart sink. The context bounds credential
// and configuration resolution, not later writes.
func NewS3Sink(ctx context.Context, cfg S3SinkConfig) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 sink: bucket required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		provider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(provider))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// WritePNG implements ChartSink.
func (s *S3Sink) WritePNG(name string, data []byte) error {
	return s.put(name, "image/png", data)
}

// WriteGraphDef implements ChartSink.
func (s *S3Sink) WriteGraphDef(name string, gdef *GraphDef) error {
	var buf bytes.Buffer
	if err := WriteGraphDef(&buf, gdef, GzipPath(name)); err != nil {
		return err
	}
	contentType := "application/json"
	if GzipPath(name) {
		contentType = "application/gzip"
	}
	return s.put(name, contentType, buf.Bytes())
}

func (s *S3Sink) put(name, contentType string, data []byte) error {
	key := s.prefix + strings.TrimPrefix(name, "/")
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 sink: put %s: %w", key, err)
	}
	return nil
}
