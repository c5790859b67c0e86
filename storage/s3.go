package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"VidTube/config"
	"VidTube/logger"
)

// S3ImageHost stores images in any S3-compatible bucket (AWS, R2, ...).
type S3ImageHost struct {
	client     *s3.Client
	bucket     string
	region     string
	publicBase string
}

// NewS3ImageHost creates the client with static credentials and an optional custom endpoint.
func NewS3ImageHost(_ context.Context, cfg config.ImageHostConfig) (*S3ImageHost, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("image host bucket is not set")
	}

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		Region:      cfg.Region,
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		if cfg.Endpoint != "" {
			base = publicURL(cfg.Endpoint, cfg.Bucket)
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3ImageHost{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: base,
	}, nil
}

func (h *S3ImageHost) EnsureBucket(ctx context.Context) error {
	_, err := h.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(h.bucket)})
	if err == nil {
		logger.Debug("Bucket already exists", logger.String("bucket", h.bucket))
		return nil
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(h.bucket)}
	if h.region != "" && h.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(h.region),
		}
	}
	if _, err := h.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", h.bucket, err)
	}
	logger.Info("Created bucket", logger.String("bucket", h.bucket))
	return nil
}

func (h *S3ImageHost) Upload(ctx context.Context, localPath string) (*Asset, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	key := ObjectKey(localPath)
	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType(localPath)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return &Asset{URL: publicURL(h.publicBase, key), Key: key}, nil
}

func (h *S3ImageHost) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(h.publicBase, url)
	if !ok {
		return nil
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	return nil
}

func (h *S3ImageHost) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(h.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(h.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: aws.ToString(obj.ETag),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			addToStats(stats, info.Size, info.LastModified)
			objects = append(objects, info)
		}
	}
	return objects, stats, nil
}
