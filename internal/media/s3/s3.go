// Package s3 uploads staged media to an S3-compatible bucket (AWS S3, MinIO).
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/VaibhavChawla151003/youtube-backend/internal/media"
)

// Config holds the bucket and endpoint settings.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	KeyPrefix     string
}

// objectPutter is the part of *s3.Client the uploader uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// Uploader implements media.Uploader with PutObject.
type Uploader struct {
	client objectPutter
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New builds an S3 client from cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and most self-hosted endpoints need path-style addressing.
			o.UsePathStyle = true
		}
	})
	return newUploader(client, cfg, logger), nil
}

func newUploader(client objectPutter, cfg Config, logger *slog.Logger) *Uploader {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "avatars"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Uploader{client: client, cfg: cfg, logger: logger, now: time.Now}
}

// Upload puts the staged file into the bucket and returns its public URL.
// The staged file is removed whatever the outcome.
func (u *Uploader) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	if localPath == "" {
		return nil, media.ErrNoFile
	}
	defer func() {
		if err := media.RemoveStaged(localPath); err != nil {
			u.logger.WarnContext(ctx, "failed to remove staged upload",
				slog.String("path", localPath),
				slog.String("error", err.Error()),
			)
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}

	key := media.ObjectKey(u.cfg.KeyPrefix, localPath, u.now().UTC())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(media.ContentType(localPath)),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	u.logger.DebugContext(ctx, "media uploaded",
		slog.String("bucket", u.cfg.Bucket),
		slog.String("key", key),
		slog.Int64("size", info.Size()),
	)

	return &media.UploadResult{
		Key: key,
		URL: fmt.Sprintf("%s/%s/%s", u.cfg.PublicBaseURL, u.cfg.Bucket, key),
	}, nil
}
