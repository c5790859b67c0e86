package profile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VidTube/core/apperr"
	"VidTube/core/media"
	"VidTube/internal/testutil"
	"VidTube/model"
)

type fixture struct {
	mgr    *Manager
	store  *testutil.MemoryStore
	host   *testutil.FakeImageHost
	stager *media.Stager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stager, err := media.NewStager(filepath.Join(t.TempDir(), "temp"), 1<<20)
	require.NoError(t, err)
	f := &fixture{store: testutil.NewMemoryStore(), host: testutil.NewFakeImageHost(), stager: stager}
	f.mgr = NewManager(f.store.Users(), f.store.Subscriptions(), f.store.Videos(), media.NewUploader(f.host))
	return f
}

func (f *fixture) addUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := model.NewUser(username, username+"@x.com", strings.ToUpper(username), "hash", "", "")
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) stage(t *testing.T, name string) *media.StagedFile {
	t.Helper()
	staged, err := f.stager.Stage(name, strings.NewReader("img"))
	require.NoError(t, err)
	return staged
}

func TestUpdateAccountDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	f.addUser(t, "bob")

	user, err := f.mgr.UpdateAccountDetails(ctx, alice.ID, UpdateAccountInput{FullName: " Alice B ", Email: "New@X.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", user.FullName)
	assert.Equal(t, "new@x.com", user.Email)

	_, err = f.mgr.UpdateAccountDetails(ctx, alice.ID, UpdateAccountInput{FullName: "Alice"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.mgr.UpdateAccountDetails(ctx, alice.ID, UpdateAccountInput{FullName: "Alice", Email: "not-an-email"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.mgr.UpdateAccountDetails(ctx, alice.ID, UpdateAccountInput{FullName: "Alice", Email: "bob@x.com"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.mgr.UpdateAccountDetails(ctx, "missing", UpdateAccountInput{FullName: "X", Email: "x@x.com"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateAvatarReplacesAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	first, err := f.mgr.UpdateAvatar(ctx, alice.ID, f.stage(t, "one.png"))
	require.NoError(t, err)
	assert.Empty(t, f.host.DeletedURLs())

	staged := f.stage(t, "two.png")
	second, err := f.mgr.UpdateAvatar(ctx, alice.ID, staged)
	require.NoError(t, err)
	assert.NotEqual(t, first.Avatar, second.Avatar)
	assert.Equal(t, []string{first.Avatar}, f.host.DeletedURLs())
	assert.Equal(t, 1, f.host.UploadCount())
	assert.NoFileExists(t, staged.Path)
}

func TestUpdateImageFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	_, err := f.mgr.UpdateAvatar(ctx, alice.ID, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.mgr.UpdateCoverImage(ctx, alice.ID, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	f.host.FailOn = ".jpg"
	staged := f.stage(t, "cover.jpg")
	_, err = f.mgr.UpdateCoverImage(ctx, alice.ID, staged)
	assert.True(t, errors.Is(err, apperr.ErrUpload))
	assert.NoFileExists(t, staged.Path)
	assert.Empty(t, f.store.StoredUser(alice.ID).CoverImage)

	missing := f.stage(t, "a.png")
	_, err = f.mgr.UpdateAvatar(ctx, "missing", missing)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoFileExists(t, missing.Path)
}

func TestUpdateCoverImage(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")

	user, err := f.mgr.UpdateCoverImage(context.Background(), alice.ID, f.stage(t, "cover.jpg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.CoverImage, f.host.BaseURL))
	assert.Empty(t, user.Avatar)
	assert.Empty(t, f.host.DeletedURLs())
}

func TestChannelProfileAndSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")

	p, err := f.mgr.ChannelProfile(ctx, bob.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.SubscribersCount)
	assert.False(t, p.IsSubscribed)

	subscribed, err := f.mgr.ToggleSubscription(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)
	_, err = f.mgr.ToggleSubscription(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.mgr.ToggleSubscription(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	p, err = f.mgr.ChannelProfile(ctx, bob.ID, " ALICE ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.SubscribersCount)
	assert.Equal(t, int64(1), p.ChannelsSubscribedToCount)
	assert.True(t, p.IsSubscribed)
	assert.Equal(t, "alice@x.com", p.Email)

	subscribed, err = f.mgr.ToggleSubscription(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)

	p, err = f.mgr.ChannelProfile(ctx, bob.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.SubscribersCount)
	assert.False(t, p.IsSubscribed)

	_, err = f.mgr.ChannelProfile(ctx, bob.ID, "  ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.mgr.ChannelProfile(ctx, bob.ID, "nobody")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.mgr.ToggleSubscription(ctx, bob.ID, bob.ID)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.mgr.ToggleSubscription(ctx, bob.ID, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestToggleSubscriptionConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.ToggleSubscription(ctx, bob.ID, alice.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := f.mgr.ChannelProfile(ctx, bob.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.SubscribersCount, "an even number of toggles leaves no edge")
}

func TestWatchHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	first := model.NewVideo(bob.ID, "first", "v1.mp4", "t1.png", 12)
	second := model.NewVideo(alice.ID, "second", "v2.mp4", "t2.png", 30)
	require.NoError(t, f.store.Videos().Create(ctx, first))
	require.NoError(t, f.store.Videos().Create(ctx, second))

	history, err := f.mgr.WatchHistory(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	for _, id := range []string{first.ID, second.ID, first.ID} {
		require.NoError(t, f.mgr.RecordWatch(ctx, alice.ID, id))
	}
	assert.True(t, errors.Is(f.mgr.RecordWatch(ctx, alice.ID, "missing"), apperr.ErrNotFound))
	assert.True(t, errors.Is(f.mgr.RecordWatch(ctx, alice.ID, ""), apperr.ErrValidation))

	history, err = f.mgr.WatchHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"first", "second", "first"},
		[]string{history[0].Title, history[1].Title, history[2].Title})
	assert.Equal(t, "bob", history[0].Owner.Username)
	assert.Equal(t, "alice", history[1].Owner.Username)
}
