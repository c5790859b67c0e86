package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. PasswordHash and RefreshToken never leave the service:
// they are excluded from JSON and every manager returns PublicUser instead.
type User struct {
	ID           string    `json:"_id" gorm:"primaryKey;size:36" bson:"_id"`
	Username     string    `json:"username" gorm:"size:64;not null;uniqueIndex" bson:"username"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex" bson:"email"`
	FullName     string    `json:"fullname" gorm:"size:255;not null;index" bson:"fullname"`
	Avatar       string    `json:"avatar" gorm:"size:1024;not null" bson:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty" gorm:"size:1024" bson:"coverImage,omitempty"`
	PasswordHash string    `json:"-" gorm:"size:255;not null" bson:"password"`
	RefreshToken string    `json:"-" gorm:"size:1024" bson:"refreshToken,omitempty"`
	WatchHistory []string  `json:"-" gorm:"-" bson:"watchHistory"` // document store only; SQL uses watch_history_entries
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime" bson:"updatedAt"`
}

// PublicUser is the sanitized projection of a User.
type PublicUser struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewUser creates a User with a fresh id. Callers normalize fields beforehand.
func NewUser(username, email, fullName, passwordHash, avatar, coverImage string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		Avatar:       avatar,
		CoverImage:   coverImage,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Public returns the sanitized projection.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// UserPatch lists the fields a partial update may set. Nil means "leave unchanged";
// a pointer to "" clears the field.
type UserPatch struct {
	FullName     *string
	Email        *string
	Avatar       *string
	CoverImage   *string
	PasswordHash *string
	RefreshToken *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Avatar == nil &&
		p.CoverImage == nil && p.PasswordHash == nil && p.RefreshToken == nil
}

// Columns maps the patch onto SQL column names.
func (p UserPatch) Columns() map[string]interface{} {
	return p.fields("full_name", "cover_image", "password_hash", "refresh_token")
}

// Fields maps the patch onto document field names (the bson tags of User).
func (p UserPatch) Fields() map[string]interface{} {
	return p.fields("fullname", "coverImage", "password", "refreshToken")
}

func (p UserPatch) fields(fullName, coverImage, passwordHash, refreshToken string) map[string]interface{} {
	out := make(map[string]interface{})
	if p.FullName != nil {
		out[fullName] = *p.FullName
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.Avatar != nil {
		out["avatar"] = *p.Avatar
	}
	if p.CoverImage != nil {
		out[coverImage] = *p.CoverImage
	}
	if p.PasswordHash != nil {
		out[passwordHash] = *p.PasswordHash
	}
	if p.RefreshToken != nil {
		out[refreshToken] = *p.RefreshToken
	}
	return out
}

// StringPtr is a small helper for building patches.
func StringPtr(s string) *string {
	return &s
}
