package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VidTube/internal/testutil"
	"VidTube/model"
	"VidTube/repository"
)

type repos struct {
	users  repository.UserRepository
	subs   repository.SubscriptionRepository
	videos repository.VideoRepository
}

func newGormRepos(t *testing.T) repos {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return repos{
		users:  repository.NewGormUserRepository(db),
		subs:   repository.NewGormSubscriptionRepository(db),
		videos: repository.NewGormVideoRepository(db),
	}
}

func createUser(t *testing.T, r repos, username string) *model.User {
	t.Helper()
	u := model.NewUser(username, username+"@x.com", "Full "+username, "hash", "https://img/"+username+".png", "")
	require.NoError(t, r.users.Create(context.Background(), u))
	return u
}

// runUserRepositoryTests exercises the contract shared by every UserRepository.
func runUserRepositoryTests(t *testing.T, newRepos func(t *testing.T) repos) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")

		got, err := r.users.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "hash", got.PasswordHash)

		got, err = r.users.FindByUsernameOrEmail(ctx, "nobody", "alice@x.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)

		got, err = r.users.FindByUsernameOrEmail(ctx, "alice", "")
		require.NoError(t, err)
		assert.NotNil(t, got)

		got, err = r.users.FindByUsernameOrEmail(ctx, "nobody", "nobody@x.com")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = r.users.FindByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicates", func(t *testing.T) {
		r := newRepos(t)
		createUser(t, r, "alice")

		err := r.users.Create(ctx, model.NewUser("alice", "other@x.com", "A", "h", "a", ""))
		assert.ErrorIs(t, err, repository.ErrDuplicateUser)

		err = r.users.Create(ctx, model.NewUser("other", "alice@x.com", "A", "h", "a", ""))
		assert.ErrorIs(t, err, repository.ErrDuplicateUser)
	})

	t.Run("update", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")
		createUser(t, r, "bob")

		updated, err := r.users.Update(ctx, alice.ID, model.UserPatch{
			FullName:     model.StringPtr("Alice Liddell"),
			RefreshToken: model.StringPtr("tok"),
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Alice Liddell", updated.FullName)
		assert.Equal(t, "tok", updated.RefreshToken)
		assert.Equal(t, "alice@x.com", updated.Email)

		updated, err = r.users.Update(ctx, alice.ID, model.UserPatch{RefreshToken: model.StringPtr("")})
		require.NoError(t, err)
		assert.Empty(t, updated.RefreshToken)

		_, err = r.users.Update(ctx, alice.ID, model.UserPatch{Email: model.StringPtr("bob@x.com")})
		assert.ErrorIs(t, err, repository.ErrDuplicateUser)

		updated, err = r.users.Update(ctx, "missing", model.UserPatch{FullName: model.StringPtr("x")})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("rotate refresh token", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")
		_, err := r.users.Update(ctx, alice.ID, model.UserPatch{RefreshToken: model.StringPtr("one")})
		require.NoError(t, err)

		ok, err := r.users.RotateRefreshToken(ctx, alice.ID, "one", "two")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.users.RotateRefreshToken(ctx, alice.ID, "one", "three")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = r.users.RotateRefreshToken(ctx, alice.ID, "", "three")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := r.users.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "two", got.RefreshToken)
	})

	t.Run("channel profile", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")
		bob := createUser(t, r, "bob")
		carol := createUser(t, r, "carol")

		p, err := r.users.ChannelProfile(ctx, "alice", bob.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, int64(0), p.SubscribersCount)
		assert.Equal(t, int64(0), p.ChannelsSubscribedToCount)
		assert.False(t, p.IsSubscribed)

		require.NoError(t, r.subs.Create(ctx, model.NewSubscription(bob.ID, alice.ID)))
		require.NoError(t, r.subs.Create(ctx, model.NewSubscription(carol.ID, alice.ID)))
		require.NoError(t, r.subs.Create(ctx, model.NewSubscription(alice.ID, carol.ID)))

		p, err = r.users.ChannelProfile(ctx, "alice", bob.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, p.ID)
		assert.Equal(t, "Full alice", p.FullName)
		assert.Equal(t, int64(2), p.SubscribersCount)
		assert.Equal(t, int64(1), p.ChannelsSubscribedToCount)
		assert.True(t, p.IsSubscribed)

		p, err = r.users.ChannelProfile(ctx, "bob", alice.ID)
		require.NoError(t, err)
		assert.False(t, p.IsSubscribed)

		p, err = r.users.ChannelProfile(ctx, "nobody", alice.ID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("watch history", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")
		bob := createUser(t, r, "bob")

		v1 := model.NewVideo(bob.ID, "first", "v1.mp4", "t1.png", 10)
		v2 := model.NewVideo(alice.ID, "second", "v2.mp4", "t2.png", 20)
		require.NoError(t, r.videos.Create(ctx, v1))
		require.NoError(t, r.videos.Create(ctx, v2))

		history, err := r.users.WatchHistory(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, history)

		for _, id := range []string{v2.ID, v1.ID, v2.ID} {
			require.NoError(t, r.users.AppendWatchHistory(ctx, alice.ID, id))
		}

		history, err = r.users.WatchHistory(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, v2.ID, history[0].ID)
		assert.Equal(t, v1.ID, history[1].ID)
		assert.Equal(t, v2.ID, history[2].ID)
		assert.Equal(t, "bob", history[1].Owner.Username)
		assert.Equal(t, "Full bob", history[1].Owner.FullName)
		assert.Equal(t, "alice", history[0].Owner.Username)
		assert.Equal(t, float64(20), history[0].Duration)
	})

	t.Run("subscriptions", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")
		bob := createUser(t, r, "bob")

		ok, err := r.subs.Exists(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, r.subs.Create(ctx, model.NewSubscription(bob.ID, alice.ID)))
		ok, err = r.subs.Exists(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = r.subs.Exists(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := r.subs.Delete(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = r.subs.Delete(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("videos", func(t *testing.T) {
		r := newRepos(t)
		alice := createUser(t, r, "alice")
		v := model.NewVideo(alice.ID, "clip", "c.mp4", "c.png", 1.5)
		require.NoError(t, r.videos.Create(ctx, v))

		got, err := r.videos.FindByID(ctx, v.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "clip", got.Title)
		assert.WithinDuration(t, v.CreatedAt, got.CreatedAt, time.Second)

		got, err = r.videos.FindByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestGormRepositories(t *testing.T) {
	runUserRepositoryTests(t, newGormRepos)
}
