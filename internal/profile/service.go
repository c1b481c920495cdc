package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expenseflow/internal"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*profileDatamodel.Profile, error)
	GetByIDs(ctx context.Context, ids []string) ([]*profileDatamodel.Profile, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return nil, internal.ErrProfileNotFound
		}
		return nil, internal.NewInternalError("Failed to load profile", err)
	}
	return FromDataModel(p), nil
}

// GetProfiles returns the profiles that exist among ids, keyed by id.
func (s *Service) GetProfiles(ctx context.Context, ids []string) (map[string]*Profile, error) {
	rows, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("Failed to load profiles", err)
	}
	out := make(map[string]*Profile, len(rows))
	for _, p := range rows {
		out[p.ID] = FromDataModel(p)
	}
	return out, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, dto UpdateProfileDTO) (*Profile, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if dto.FullName != nil {
		fields["full_name"] = *dto.FullName
	}
	if dto.AvatarURL != nil {
		if *dto.AvatarURL == "" {
			fields["avatar_url"] = nil
		} else {
			fields["avatar_url"] = *dto.AvatarURL
		}
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, userID, fields); err != nil {
			if errors.Is(err, internal.ErrProfileNotFound) {
				return nil, internal.ErrProfileNotFound
			}
			return nil, internal.NewInternalError("Failed to update profile", err)
		}
		s.logger.Info("profile updated", "user_id", userID, "fields", len(fields))
	}

	return s.GetProfile(ctx, userID)
}
