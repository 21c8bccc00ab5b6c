package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "fotocasa-scraper/config"
)

// objectPutter is the subset of the S3 client the exporter uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads the CSV stores to S3-compatible storage after a run.
type S3Exporter struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Exporter creates an exporter from config. Static credentials are used
// when given, otherwise the default AWS chain.
func NewS3Exporter(ctx context.Context, cfg appconfig.S3Config) (*S3Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Exporter{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

// Upload uploads data to S3 with the given key.
func (e *S3Exporter) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: put %s: %w", key, err)
	}
	return nil
}

// Key returns the object key for a local file: <prefix>/<YYYY-MM-DD>/<basename>.
func (e *S3Exporter) Key(localPath string) string {
	return path.Join(e.prefix, e.now().Format("2006-01-02"), filepath.Base(localPath))
}

// ExportFiles uploads each existing file; missing files are skipped.
// It returns the keys written.
func (e *S3Exporter) ExportFiles(ctx context.Context, paths ...string) ([]string, error) {
	var keys []string
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return keys, fmt.Errorf("s3: open %q: %w", p, err)
		}
		key := e.Key(p)
		err = e.Upload(ctx, key, f, "text/csv")
		f.Close()
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
