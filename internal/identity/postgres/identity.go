package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	magiclinkDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/magiclink"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) identity.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*profileDatamodel.Profile, error) {
	var p profileDatamodel.Profile
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetProfileByID(ctx context.Context, id string) (*profileDatamodel.Profile, error) {
	var p profileDatamodel.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreateProfile(ctx context.Context, p *profileDatamodel.Profile) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrEmailTaken
	}
	return err
}

func (r *Repository) CreateMagicLink(ctx context.Context, link *magiclinkDatamodel.MagicLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// ConsumeMagicLink flips used_at in a single conditional UPDATE so a link
// redeemed twice concurrently succeeds only once.
func (r *Repository) ConsumeMagicLink(ctx context.Context, tokenHash string, now time.Time) (*magiclinkDatamodel.MagicLink, error) {
	db := r.db.WithContext(ctx)

	res := db.Model(&magiclinkDatamodel.MagicLink{}).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		Update("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, internal.ErrMagicLinkInvalid
	}

	var link magiclinkDatamodel.MagicLink
	if err := db.Where("token_hash = ?", tokenHash).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}
