package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Options configures the S3 client. Endpoint and the key pair are
// only set for S3-compatible stores outside AWS.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Client downloads source objects and uploads task results.
type S3Client struct {
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
	bucket     string
}

// NewS3Client builds an S3 client from the default credential chain,
// overridden by static credentials and endpoint when provided.
func NewS3Client(ctx context.Context, opts S3Options) (*S3Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket not configured")
	}

	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client:     cli,
		downloader: manager.NewDownloader(cli),
		uploader:   manager.NewUploader(cli),
		bucket:     opts.Bucket,
	}, nil
}

// Download fetches key into the local file at dest. When the object is
// sealed it is decrypted with password before being written.
func (s *S3Client) Download(ctx context.Context, key, dest, password string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	n, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("download s3://%s/%s: %w", s.bucket, key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		return fmt.Errorf("read %s: %w", dest, err)
	}
	if Sealed(data) {
		plain, err := Unseal(data, password)
		if err != nil {
			os.Remove(dest)
			return fmt.Errorf("unseal s3://%s/%s: %w", s.bucket, key, err)
		}
		if err := os.WriteFile(dest, plain, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		log.Debug().Str("key", key).Int("size", len(plain)).Msg("decrypted sealed object")
	}

	log.Info().Str("key", key).Int64("bytes", n).Str("dest", dest).Msg("downloaded object from S3")
	return nil
}

// Upload stores the local file at path under key. A non-empty password
// seals the object before upload.
func (s *S3Client) Upload(ctx context.Context, key, path, password string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if password != "" {
		data, err = Seal(data, password)
		if err != nil {
			return fmt.Errorf("seal %s: %w", path, err)
		}
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}

	log.Info().Str("key", key).Int("bytes", len(data)).Bool("sealed", password != "").Msg("uploaded result to S3")
	return nil
}

// Ping verifies bucket access, used by health checks.
func (s *S3Client) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}
