package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/openmined/themesync/internal/assets"
)

type BlobClient struct {
	s3Client s3API
	config   *S3BlobConfig
}

func NewBlobClient(s3Client s3API, config *S3BlobConfig) *BlobClient {
	return &BlobClient{
		s3Client: s3Client,
		config:   config,
	}
}

func NewBlobClientWithS3Config(ctx context.Context, cfg *S3BlobConfig) (*BlobClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 60 * time.Second,
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}
	// without static keys the default chain (env, shared config, IAM) applies
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	awsClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewBlobClient(awsClient, cfg), nil
}

func (s *BlobClient) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", assets.ErrNotFound, key)
		}
		return nil, err
	}

	return &GetObjectResponse{
		Body:         resp.Body,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         trimETag(resp.ETag),
		LastModified: aws.ToTime(resp.LastModified),
	}, nil
}

func (s *BlobClient) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	input := &s3.PutObjectInput{
		Bucket:        &s.config.BucketName,
		Key:           &params.Key,
		Body:          params.Body,
		ContentLength: aws.Int64(params.Size),
	}
	if params.ContentType != "" {
		input.ContentType = aws.String(params.ContentType)
	}

	resp, err := s.s3Client.PutObject(ctx, input)
	if err != nil {
		return nil, err
	}

	// s3.PutObjectOutput does not have LastModified
	return &PutObjectResponse{
		Key:          params.Key,
		Size:         params.Size,
		Version:      aws.ToString(resp.VersionId),
		ETag:         trimETag(resp.ETag),
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *BlobClient) DeleteObject(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	return err
}

// ListObjects lists every object under prefix.
func (s *BlobClient) ListObjects(ctx context.Context, prefix string) ([]*BlobInfo, error) {
	var objects []*BlobInfo

	input := &s3.ListObjectsV2Input{Bucket: &s.config.BucketName}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			objects = append(objects, &BlobInfo{
				Key:          aws.ToString(obj.Key),
				ETag:         trimETag(obj.ETag),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

func trimETag(etag *string) string {
	return strings.ReplaceAll(aws.ToString(etag), "\"", "")
}
