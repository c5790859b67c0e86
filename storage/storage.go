package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"VidTube/config"
)

// ImagePrefix is the object key prefix for every uploaded image.
const ImagePrefix = "images/"

// Asset is an object stored on the image host.
type Asset struct {
	URL string
	Key string
}

// ImageHost stores user images and serves them under public URLs.
type ImageHost interface {
	// Upload stores the file at localPath and returns its public location.
	Upload(ctx context.Context, localPath string) (*Asset, error)
	// Delete removes the object behind url. URLs this host did not issue are ignored.
	Delete(ctx context.Context, url string) error
	// EnsureBucket creates the bucket when it does not exist.
	EnsureBucket(ctx context.Context) error
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// BucketStats summarizes a listing.
type BucketStats struct {
	TotalObjects int
	TotalSize    int64
	LastModified time.Time
}

// Lister is implemented by hosts that can enumerate their objects.
type Lister interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error)
}

// NewImageHost builds the host selected by cfg.Driver.
func NewImageHost(ctx context.Context, cfg config.ImageHostConfig) (ImageHost, error) {
	switch cfg.Driver {
	case "minio":
		return NewMinioImageHost(cfg)
	case "s3":
		return NewS3ImageHost(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported image host driver %q", cfg.Driver)
	}
}

// ObjectKey derives a fresh, collision-free key that keeps the file extension.
func ObjectKey(localPath string) string {
	return ImagePrefix + uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// keyFromURL returns the object key for a URL under base, or false when the
// URL belongs to someone else.
func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func addToStats(stats *BucketStats, size int64, modified time.Time) {
	stats.TotalObjects++
	stats.TotalSize += size
	if modified.After(stats.LastModified) {
		stats.LastModified = modified
	}
}
