package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"VidTube/config"
	"VidTube/logger"
)

// MinioImageHost stores images in a MinIO bucket.
type MinioImageHost struct {
	client     *minio.Client
	bucket     string
	region     string
	publicBase string
}

// NewMinioImageHost creates the client. It does not contact the server.
func NewMinioImageHost(cfg config.ImageHostConfig) (*MinioImageHost, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioImageHost{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: base,
	}, nil
}

func (h *MinioImageHost) EnsureBucket(ctx context.Context) error {
	exists, err := h.client.BucketExists(ctx, h.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", h.bucket, err)
	}
	if exists {
		logger.Debug("Bucket already exists", logger.String("bucket", h.bucket))
		return nil
	}
	if err := h.client.MakeBucket(ctx, h.bucket, minio.MakeBucketOptions{Region: h.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", h.bucket, err)
	}
	logger.Info("Created bucket", logger.String("bucket", h.bucket))
	return nil
}

func (h *MinioImageHost) Upload(ctx context.Context, localPath string) (*Asset, error) {
	key := ObjectKey(localPath)
	_, err := h.client.FPutObject(ctx, h.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to MinIO: %w", key, err)
	}
	return &Asset{URL: publicURL(h.publicBase, key), Key: key}, nil
}

func (h *MinioImageHost) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(h.publicBase, url)
	if !ok {
		return nil
	}
	if err := h.client.RemoveObject(ctx, h.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s from MinIO: %w", key, err)
	}
	return nil
}

func (h *MinioImageHost) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	for object := range h.client.ListObjects(ctx, h.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		addToStats(stats, object.Size, object.LastModified)
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}
