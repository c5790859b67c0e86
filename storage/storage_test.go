package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"VidTube/config"
)

func TestObjectKey(t *testing.T) {
	a := ObjectKey("/tmp/public/temp/abc.PNG")
	b := ObjectKey("/tmp/public/temp/abc.PNG")

	assert.True(t, strings.HasPrefix(a, ImagePrefix))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestKeyFromURL(t *testing.T) {
	base := "https://cdn.example.com/vidtube/"

	key, ok := keyFromURL(base, "https://cdn.example.com/vidtube/images/x.png")
	assert.True(t, ok)
	assert.Equal(t, "images/x.png", key)

	_, ok = keyFromURL(base, "https://elsewhere.example.com/images/x.png")
	assert.False(t, ok)

	_, ok = keyFromURL(base, "")
	assert.False(t, ok)

	_, ok = keyFromURL("", "https://cdn.example.com/images/x.png")
	assert.False(t, ok)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("a.PNG"))
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2<<20))
}

func TestMinioPublicBaseDefault(t *testing.T) {
	h, err := NewMinioImageHost(config.ImageHostConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "k",
		SecretKey: "s",
		Bucket:    "vidtube",
	})
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/vidtube", h.publicBase)

	// foreign URLs are ignored without contacting the server
	assert.NoError(t, h.Delete(t.Context(), "https://other.example.com/images/a.png"))
}

func TestS3PublicBaseDefault(t *testing.T) {
	h, err := NewS3ImageHost(t.Context(), config.ImageHostConfig{
		AccessKey: "k",
		SecretKey: "s",
		Bucket:    "vidtube",
		Region:    "eu-west-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://vidtube.s3.eu-west-1.amazonaws.com", h.publicBase)

	_, err = NewS3ImageHost(t.Context(), config.ImageHostConfig{})
	assert.Error(t, err)
}
