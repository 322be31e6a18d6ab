package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"cadbridge/internal/logger"
	transfer "cadbridge/internal/transfer/iface"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
	Bucket          string
	Prefix          string
}

type minioTransport struct {
	client *minio.Client
	cfg    Config
	logger logger.Logger

	mu            sync.Mutex
	bucketEnsured bool
}

// NewMinioTransport creates an object-store transport for MinIO or any S3 compatible endpoint.
func NewMinioTransport(cfg Config, log logger.Logger) (transfer.Transport, error) {
	if cfg.EndpointURL == "" {
		return nil, transfer.NewError(transfer.CodeEndpointUnreachable, false, fmt.Errorf("endpoint url is required"))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, transfer.NewError(transfer.CodeAuthInvalid, false, fmt.Errorf("credentials are required"))
	}
	if cfg.Bucket == "" {
		return nil, transfer.NewError(transfer.CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, transfer.NewError(transfer.CodeEndpointUnreachable, false, fmt.Errorf("invalid endpoint url: %w", err))
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.EndpointURL
	}
	useSSL := cfg.UseSSL || u.Scheme == "https"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
		// One HTTP attempt per call; the deliverer owns retries and their time budget.
		MaxRetries: 1,
	})
	if err != nil {
		return nil, transfer.NewError(transfer.CodeEndpointUnreachable, true, fmt.Errorf("failed to create minio client: %w", err))
	}

	return &minioTransport{
		client: client,
		cfg:    cfg,
		logger: log.With(logger.String("component", "minio_transport")),
	}, nil
}

func (t *minioTransport) Name() string {
	return "minio:" + t.cfg.Bucket
}

func (t *minioTransport) Store(ctx context.Context, data []byte, remotePath string) error {
	key := objectKey(t.cfg.Prefix, remotePath)
	if key == "" {
		return transfer.NewError(transfer.CodeInvalidPath, false, fmt.Errorf("object key is required"))
	}

	if err := t.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := t.client.PutObject(ctx, t.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/xml",
	})
	if err != nil {
		return classifyMinioError(err)
	}

	t.logger.Debug("object stored",
		logger.String("bucket", t.cfg.Bucket),
		logger.String("key", key),
		logger.Int("bytes", len(data)))
	return nil
}

func (t *minioTransport) ensureBucket(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bucketEnsured {
		return nil
	}

	exists, err := t.client.BucketExists(ctx, t.cfg.Bucket)
	if err != nil {
		return classifyMinioError(err)
	}
	if !exists {
		err = t.client.MakeBucket(ctx, t.cfg.Bucket, minio.MakeBucketOptions{Region: t.cfg.Region})
		if err != nil {
			return classifyMinioError(err)
		}
		t.logger.Info("bucket created", logger.String("bucket", t.cfg.Bucket))
	}

	t.bucketEnsured = true
	return nil
}

func objectKey(prefix, remotePath string) string {
	p := strings.Trim(strings.TrimSpace(remotePath), "/")
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Join(strings.Trim(prefix, "/"), p), "/")
}

// classifyMinioError converts minio-go errors into transfer errors.
func classifyMinioError(err error) error {
	if err == nil {
		return nil
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket":
			return transfer.NewError(transfer.CodeBucketNotFound, false, err)
		case "AccessDenied":
			return transfer.NewError(transfer.CodePermissionDenied, false, err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return transfer.NewError(transfer.CodeAuthInvalid, false, err)
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return transfer.NewError(transfer.CodeServerError, true, err)
		}
		if resp.StatusCode >= 500 {
			return transfer.NewError(transfer.CodeServerError, true, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such bucket"), strings.Contains(msg, "bucket does not exist"):
		return transfer.NewError(transfer.CodeBucketNotFound, false, err)
	case strings.Contains(msg, "invalid access key"), strings.Contains(msg, "signature"):
		return transfer.NewError(transfer.CodeAuthInvalid, false, err)
	}

	return transfer.Classify(err)
}
