package repository_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"VidTube/repository"
)

// Runs only against a real server, e.g.
// VIDTUBE_TEST_MONGO_URI=mongodb://localhost:27017 go test ./repository/...
func TestMongoRepositories(t *testing.T) {
	uri := os.Getenv("VIDTUBE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VIDTUBE_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	runUserRepositoryTests(t, func(t *testing.T) repos {
		name := "vidtube_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
		db := client.Database(name)
		require.NoError(t, repository.EnsureMongoIndexes(context.Background(), db))
		t.Cleanup(func() { _ = db.Drop(context.Background()) })
		return repos{
			users:  repository.NewMongoUserRepository(db),
			subs:   repository.NewMongoSubscriptionRepository(db),
			videos: repository.NewMongoVideoRepository(db),
		}
	})
}
