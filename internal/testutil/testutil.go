// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"VidTube/config"
	"VidTube/db"
	"VidTube/storage"
)

// NewSQLiteDB returns a migrated in-memory database private to the test.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.ConnectGormDB(config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateModels(gormDB))
	t.Cleanup(func() { _ = db.CloseGormDB(gormDB) })
	return gormDB
}

// WriteFile creates a file with the given content in a temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// FakeImageHost is an in-memory storage.ImageHost. Set FailOn to make uploads
// of files whose name contains that substring fail.
type FakeImageHost struct {
	mu       sync.Mutex
	BaseURL  string
	FailOn   string
	Uploaded map[string]string // url -> original local path
	Deleted  []string
}

var _ storage.ImageHost = (*FakeImageHost)(nil)

// NewFakeImageHost creates an empty fake host.
func NewFakeImageHost() *FakeImageHost {
	return &FakeImageHost{BaseURL: "https://img.test", Uploaded: map[string]string{}}
}

func (f *FakeImageHost) Upload(_ context.Context, localPath string) (*storage.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailOn != "" && strings.Contains(filepath.Base(localPath), f.FailOn) {
		return nil, fmt.Errorf("upload of %s refused", localPath)
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	key := storage.ObjectKey(localPath)
	url := f.BaseURL + "/" + key
	f.Uploaded[url] = localPath
	return &storage.Asset{URL: url, Key: key}, nil
}

func (f *FakeImageHost) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Uploaded, url)
	f.Deleted = append(f.Deleted, url)
	return nil
}

func (f *FakeImageHost) EnsureBucket(context.Context) error { return nil }

// UploadCount returns the number of assets currently stored.
func (f *FakeImageHost) UploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Uploaded)
}

// DeletedURLs returns a copy of the deleted URLs.
func (f *FakeImageHost) DeletedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Deleted...)
}
