package storage

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3Config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
)

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Folder          string
	PublicURL       string
}

// NewS3Client builds a path-style client. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*s3Config.LoadOptions) error{s3Config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, s3Config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := s3Config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Store uploads images to an S3-compatible bucket under a fixed folder.
type S3Store struct {
	api S3API
	cfg S3Config
}

func NewS3Store(api S3API, cfg S3Config) *S3Store {
	return &S3Store{api: api, cfg: cfg}
}

func (s *S3Store) Backend() string { return "s3" }

// EnsureBucket creates the bucket, tolerating one that already exists.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	return err
}

// Store uploads img and returns its public URL.
func (s *S3Store) Store(ctx context.Context, img models.ImageUpload) (string, error) {
	key := objectKey(img.Filename)
	if s.cfg.Folder != "" {
		key = path.Join(s.cfg.Folder, key)
	}

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.DetectedContentType()),
		ContentLength: aws.Int64(int64(img.Size())),
	})
	if err != nil {
		return "", storageErr("upload", img.Filename, err)
	}
	return s.url(key), nil
}

func (s *S3Store) url(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + escaped
	}
	return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + escaped
}
