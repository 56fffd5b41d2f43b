package database

import (
	"context"
	"fmt"
	"time"

	"github.com/starbids/starbids/starbids/database/models"
)

func (o ops) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := o.db.NewInsert().Model(u).
		On("CONFLICT (user_id) DO UPDATE").
		Set("public_name = EXCLUDED.public_name").
		Set("public_photo = EXCLUDED.public_photo").
		Set("is_anonymous = EXCLUDED.is_anonymous").
		Set("anon_name = EXCLUDED.anon_name").
		Set("anon_photo = EXCLUDED.anon_photo").
		Set("updated_at = ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.UserID, translate(err))
	}
	return nil
}

func (o ops) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u := new(models.User)
	err := o.db.NewSelect().Model(u).Where("u.user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, translate(err))
	}
	return u, nil
}
