package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"dupes-go/internal/dupes"
)

// S3Archive stores archived content in an S3 bucket. Objects are keyed
// <prefix>/content/<hash>.
type S3Archive struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// S3Options configures access to the bucket. AccessKeyID and
// SecretAccessKey are optional; when empty the default credential chain
// is used.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Archive creates an archive backed by the given S3 bucket.
func NewS3Archive(ctx context.Context, opts S3Options) (*S3Archive, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Archive{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
	}, nil
}

func (a *S3Archive) key(hash string) string {
	return path.Join(a.prefix, "content", hash)
}

func (a *S3Archive) Put(hash string, r io.Reader, size int64) error {
	ctx := context.Background()

	// Idempotent: if the object is already there, drain and verify size.
	exists, err := a.Has(hash)
	if err != nil {
		return err
	}
	if exists {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(hash)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

func (a *S3Archive) Has(hash string) (bool, error) {
	_, err := a.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(hash)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NotFound", "NoSuchKey":
				return false, nil
			}
		}
		return false, fmt.Errorf("failed to head s3 object: %w", err)
	}
	return true, nil
}

func (a *S3Archive) Get(hash string, w io.Writer) error {
	out, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(hash)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NotFound", "NoSuchKey":
				return fmt.Errorf("content not found: %s", hash)
			}
		}
		return fmt.Errorf("failed to get s3 object: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read s3 object: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the bucket is reachable with the configured
// credentials.
func (a *S3Archive) ValidateSetup() error {
	_, err := a.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket not accessible: %w", err)
	}
	return nil
}

// Compile-time check that S3Archive implements dupes.Archive
var _ dupes.Archive = (*S3Archive)(nil)
