package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"cadbridge/internal/logger"
	transfer "cadbridge/internal/transfer/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Client is the subset of the S3 API the transport uses.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Transport struct {
	client Client
	bucket string
	prefix string
	region string
	logger logger.Logger

	mu            sync.Mutex
	bucketEnsured bool
}

// NewS3Transport creates an S3 transport that writes below prefix in bucket.
func NewS3Transport(client Client, bucket, prefix, region string, log logger.Logger) (transfer.Transport, error) {
	if bucket == "" {
		return nil, transfer.NewError(transfer.CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}
	return &s3Transport{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		region: region,
		logger: log.With(logger.String("component", "s3_transport")),
	}, nil
}

func (t *s3Transport) Name() string {
	return "s3:" + t.bucket
}

func (t *s3Transport) Store(ctx context.Context, data []byte, remotePath string) error {
	p := strings.Trim(strings.TrimSpace(remotePath), "/")
	if p == "" {
		return transfer.NewError(transfer.CodeInvalidPath, false, fmt.Errorf("object key is required"))
	}
	key := strings.TrimPrefix(path.Join(t.prefix, p), "/")

	if err := t.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/xml"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return classifyS3Error(err)
	}

	t.logger.Debug("object stored",
		logger.String("bucket", t.bucket),
		logger.String("key", key),
		logger.Int("bytes", len(data)))
	return nil
}

func (t *s3Transport) ensureBucket(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bucketEnsured {
		return nil
	}

	_, err := t.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(t.bucket)})
	if err == nil {
		t.bucketEnsured = true
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return classifyS3Error(err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(t.bucket)}
	if t.region != "" && t.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(t.region),
		}
	}

	if _, err := t.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if !errors.As(err, &owned) {
			return classifyS3Error(err)
		}
	} else {
		t.logger.Info("bucket created", logger.String("bucket", t.bucket))
	}

	t.bucketEnsured = true
	return nil
}

func classifyS3Error(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return transfer.NewError(transfer.CodeBucketNotFound, false, err)
		case "AccessDenied", "AllAccessDisabled":
			return transfer.NewError(transfer.CodePermissionDenied, false, err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
			return transfer.NewError(transfer.CodeAuthInvalid, false, err)
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return transfer.NewError(transfer.CodeServerError, true, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.HTTPStatusCode(); {
		case status == http.StatusUnauthorized:
			return transfer.NewError(transfer.CodeAuthInvalid, false, err)
		case status == http.StatusForbidden:
			return transfer.NewError(transfer.CodePermissionDenied, false, err)
		case status == http.StatusTooManyRequests, status >= 500:
			return transfer.NewError(transfer.CodeServerError, true, err)
		}
	}

	return transfer.Classify(err)
}
