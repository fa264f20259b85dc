package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// Options configures the S3 client. Empty fields fall back to the AWS
// default credential and region chain.
type Options struct {
	Region          string
	Endpoint        string // S3-compatible endpoint, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// Object addresses one S3 object.
type Object struct {
	Bucket string
	Key    string
}

func (o Object) String() string { return "s3://" + o.Bucket + "/" + o.Key }

// ParseURL splits s3://bucket/key.
func ParseURL(ref string) (Object, error) {
	path, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return Object{}, fmt.Errorf("not an s3 url: %s", ref)
	}
	bucket, key, _ := strings.Cut(path, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return Object{}, fmt.Errorf("invalid s3 url: %s", ref)
	}
	return Object{Bucket: bucket, Key: key}, nil
}

// IsURL reports whether ref names an S3 object.
func IsURL(ref string) bool { return strings.HasPrefix(ref, "s3://") }

// S3Client moves whole files between the local filesystem and S3.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Client creates a new S3 client
func NewS3Client(ctx context.Context, opts Options) (*S3Client, error) {
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		downloader: manager.NewDownloader(cli),
	}, nil
}

// Download writes obj into a new temp file and returns its path. The caller
// removes the file.
func (s *S3Client) Download(ctx context.Context, obj Object) (string, error) {
	// Keep a .pdf suffix; some tooling keys off the extension.
	f, err := os.CreateTemp("", "pdfsplit-s3-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to download from S3: %w", err)
	}

	log.Info().Str("bucket", obj.Bucket).Str("key", obj.Key).Int64("size", n).Msg("downloaded s3 object")
	return f.Name(), nil
}

// Upload stores the contents of r at obj.
func (s *S3Client) Upload(ctx context.Context, obj Object, r io.Reader) error {
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(obj.Bucket),
		Key:         aws.String(obj.Key),
		Body:        r,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("bucket", obj.Bucket).Str("key", obj.Key).Str("location", out.Location).Msg("uploaded s3 object")
	return nil
}

// IsNotFound reports whether err means the object or bucket does not exist.
func IsNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *s3types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
