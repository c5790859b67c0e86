package testutil

import (
	"context"
	"sync"

	"VidTube/model"
	"VidTube/repository"
)

// MemoryStore is a map-backed rendering of the user, subscription and video stores.
// Create enforces username and email uniqueness under the lock, like a unique index.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	subs     []*model.Subscription
	videos   map[string]*model.Video
	history  map[string][]string
	dropNext bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]*model.User{},
		videos:  map[string]*model.Video{},
		history: map[string][]string{},
	}
}

// DropNextCreate makes the next user Create report success without storing anything.
func (s *MemoryStore) DropNextCreate() {
	s.mu.Lock()
	s.dropNext = true
	s.mu.Unlock()
}

// UserCount returns the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// StoredUser returns a copy of the raw record, secrets included.
func (s *MemoryStore) StoredUser(id string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.users[id])
}

func (s *MemoryStore) Users() repository.UserRepository                 { return memUsers{s} }
func (s *MemoryStore) Subscriptions() repository.SubscriptionRepository { return memSubs{s} }
func (s *MemoryStore) Videos() repository.VideoRepository               { return memVideos{s} }

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.WatchHistory = append([]string(nil), u.WatchHistory...)
	return &c
}

type memUsers struct{ s *MemoryStore }

func (r memUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if username == "" && email == "" {
		return nil, nil
	}
	for _, u := range r.s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cloneUser(r.s.users[id]), nil
}

func (r memUsers) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicateUser
		}
	}
	if r.s.dropNext {
		r.s.dropNext = false
		return nil
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r memUsers) Update(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	if patch.Email != nil {
		for otherID, other := range r.s.users {
			if otherID != id && other.Email == *patch.Email {
				return nil, repository.ErrDuplicateUser
			}
		}
		u.Email = *patch.Email
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.CoverImage != nil {
		u.CoverImage = *patch.CoverImage
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.RefreshToken != nil {
		u.RefreshToken = *patch.RefreshToken
	}
	return cloneUser(u), nil
}

func (r memUsers) RotateRefreshToken(_ context.Context, id, presented, next string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || presented == "" || u.RefreshToken != presented {
		return false, nil
	}
	u.RefreshToken = next
	return true, nil
}

func (r memUsers) ChannelProfile(_ context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var channel *model.User
	for _, u := range r.s.users {
		if u.Username == username {
			channel = u
			break
		}
	}
	if channel == nil {
		return nil, nil
	}
	p := &model.ChannelProfile{
		ID:         channel.ID,
		FullName:   channel.FullName,
		Username:   channel.Username,
		Email:      channel.Email,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for _, sub := range r.s.subs {
		if sub.ChannelID == channel.ID {
			p.SubscribersCount++
			if sub.SubscriberID == viewerID {
				p.IsSubscribed = true
			}
		}
		if sub.SubscriberID == channel.ID {
			p.ChannelsSubscribedToCount++
		}
	}
	return p, nil
}

func (r memUsers) WatchHistory(_ context.Context, userID string) ([]model.VideoSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.VideoSummary{}
	for _, videoID := range r.s.history[userID] {
		v, ok := r.s.videos[videoID]
		if !ok {
			continue
		}
		summary := model.VideoSummary{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			VideoFile:   v.VideoFile,
			Thumbnail:   v.Thumbnail,
			Duration:    v.Duration,
			Views:       v.Views,
			CreatedAt:   v.CreatedAt,
		}
		if owner, ok := r.s.users[v.OwnerID]; ok {
			summary.Owner = model.VideoOwner{
				ID:       owner.ID,
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r memUsers) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history[userID] = append(r.s.history[userID], videoID)
	return nil
}

type memSubs struct{ s *MemoryStore }

func (r memSubs) Create(_ context.Context, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sub
	r.s.subs = append(r.s.subs, &c)
	return nil
}

func (r memSubs) Delete(_ context.Context, subscriberID, channelID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.subs[:0]
	var removed int64
	for _, sub := range r.s.subs {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			removed++
			continue
		}
		kept = append(kept, sub)
	}
	r.s.subs = kept
	return removed, nil
}

func (r memSubs) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

type memVideos struct{ s *MemoryStore }

func (r memVideos) Create(_ context.Context, video *model.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *video
	r.s.videos[video.ID] = &c
	return nil
}

func (r memVideos) FindByID(_ context.Context, id string) (*model.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}
