package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User carries display identity for leaderboards. Anonymous users expose
// their anon name/photo instead of the public ones; the numeric id is never
// shown for them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID     int64 `bun:"id,pk,autoincrement"`
	UserID int64 `bun:"user_id,notnull,unique"`

	PublicName  string `bun:"public_name,notnull"`
	PublicPhoto string `bun:"public_photo"`

	IsAnonymous bool   `bun:"is_anonymous,notnull,default:false"`
	AnonName    string `bun:"anon_name"`
	AnonPhoto   string `bun:"anon_photo"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// DisplayName returns the name to show on leaderboards, honoring anonymity.
func (u *User) DisplayName() string {
	if u.IsAnonymous {
		return u.AnonName
	}
	return u.PublicName
}

// DisplayPhoto returns the photo to show on leaderboards, honoring anonymity.
func (u *User) DisplayPhoto() string {
	if u.IsAnonymous {
		return u.AnonPhoto
	}
	return u.PublicPhoto
}
