package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	magiclinkDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/magiclink"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	GetProfileByEmail(ctx context.Context, email string) (*profileDatamodel.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*profileDatamodel.Profile, error)
	CreateProfile(ctx context.Context, p *profileDatamodel.Profile) error
	CreateMagicLink(ctx context.Context, link *magiclinkDatamodel.MagicLink) error
	// ConsumeMagicLink marks an unused, unexpired link as used and returns it.
	ConsumeMagicLink(ctx context.Context, tokenHash string, now time.Time) (*magiclinkDatamodel.MagicLink, error)
}

type ServiceAPI interface {
	SignUp(ctx context.Context, dto SignUpDTO) (*AuthTokens, error)
	SignIn(ctx context.Context, dto SignInDTO) (*AuthTokens, error)
	RequestMagicLink(ctx context.Context, dto MagicLinkDTO) error
	RedeemMagicLink(ctx context.Context, dto VerifyMagicLinkDTO) (*AuthTokens, error)
	Refresh(ctx context.Context, dto RefreshTokenDTO) (*AuthTokens, error)
	SignOut(ctx context.Context, user *User, dto SignOutDTO) error
	Authenticate(ctx context.Context, accessToken string) (*User, error)
}

type Options struct {
	BCryptCost   int
	MagicLinkTTL time.Duration
	BaseURL      string
}

type Service struct {
	repo        RepositoryAPI
	tokens      TokenGeneratorAPI
	revocations RevocationStore
	publisher   events.Publisher
	opts        Options
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, revocations RevocationStore, publisher events.Publisher, opts Options, logger *slog.Logger) *Service {
	if opts.BCryptCost == 0 {
		opts.BCryptCost = bcrypt.DefaultCost
	}
	if opts.MagicLinkTTL == 0 {
		opts.MagicLinkTTL = 15 * time.Minute
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		revocations: revocations,
		publisher:   publisher,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) SignUp(ctx context.Context, dto SignUpDTO) (*AuthTokens, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetProfileByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, internal.ErrProfileNotFound) {
		return nil, internal.NewInternalError("Failed to create account", err)
	}
	if existing != nil {
		return nil, internal.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.opts.BCryptCost)
	if err != nil {
		return nil, internal.NewInternalError("Failed to create account", err)
	}
	hashStr := string(hash)

	p := &profileDatamodel.Profile{
		Email:        dto.Email,
		FullName:     dto.FullName,
		PasswordHash: &hashStr,
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, internal.ErrEmailTaken) {
			return nil, internal.ErrEmailTaken
		}
		return nil, internal.NewInternalError("Failed to create account", err)
	}

	s.logger.Info("account created", "user_id", p.ID)
	return s.issue(p.ID, p.Email)
}

func (s *Service) SignIn(ctx context.Context, dto SignInDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProfileByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("Failed to sign in", err)
	}
	if p.PasswordHash == nil {
		return nil, internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*p.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	return s.issue(p.ID, p.Email)
}

// RequestMagicLink never reveals whether the address has an account.
func (s *Service) RequestMagicLink(ctx context.Context, dto MagicLinkDTO) error {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return err
	}

	token, err := randomToken()
	if err != nil {
		return internal.NewInternalError("Failed to create magic link", err)
	}

	link := &magiclinkDatamodel.MagicLink{
		Email:     dto.Email,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(s.opts.MagicLinkTTL),
	}
	if err := s.repo.CreateMagicLink(ctx, link); err != nil {
		return internal.NewInternalError("Failed to create magic link", err)
	}

	if s.publisher != nil {
		evt := events.NewMagicLinkEvent(dto.Email, s.magicLinkURL(token), s.opts.MagicLinkTTL.String())
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("failed to publish magic link event", "error", err)
		}
	}
	return nil
}

func (s *Service) magicLinkURL(token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/auth?magic_token=" + url.QueryEscape(token)
}

func (s *Service) RedeemMagicLink(ctx context.Context, dto VerifyMagicLinkDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	link, err := s.repo.ConsumeMagicLink(ctx, hashToken(strings.TrimSpace(dto.Token)), s.now())
	if err != nil {
		if errors.Is(err, internal.ErrMagicLinkInvalid) {
			return nil, internal.ErrMagicLinkInvalid
		}
		return nil, internal.NewInternalError("Failed to verify magic link", err)
	}

	p, err := s.repo.GetProfileByEmail(ctx, link.Email)
	switch {
	case errors.Is(err, internal.ErrProfileNotFound):
		p = &profileDatamodel.Profile{Email: link.Email, FullName: displayNameFromEmail(link.Email)}
		createErr := s.repo.CreateProfile(ctx, p)
		switch {
		case errors.Is(createErr, internal.ErrEmailTaken):
			// another first-use redemption for this email created it first
			if p, err = s.repo.GetProfileByEmail(ctx, link.Email); err != nil {
				return nil, internal.NewInternalError("Failed to verify magic link", err)
			}
		case createErr != nil:
			return nil, internal.NewInternalError("Failed to create account", createErr)
		default:
			s.logger.Info("account created from magic link", "user_id", p.ID)
		}
	case err != nil:
		return nil, internal.NewInternalError("Failed to verify magic link", err)
	}

	return s.issue(p.ID, p.Email)
}

func (s *Service) Refresh(ctx context.Context, dto RefreshTokenDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProfileByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("Failed to refresh session", err)
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.issue(claims.UserID, claims.Email)
}

func (s *Service) SignOut(ctx context.Context, user *User, dto SignOutDTO) error {
	if user.TokenID != "" {
		if err := s.revocations.Revoke(ctx, user.TokenID, time.Until(user.ExpiresAt)); err != nil {
			return internal.NewInternalError("Failed to sign out", err)
		}
	}

	if dto.RefreshToken != "" {
		claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
		if err != nil {
			// an unusable refresh token needs no revocation
			s.logger.Debug("sign out with invalid refresh token", "user_id", user.ID)
			return nil
		}
		if claims.UserID != user.ID {
			return internal.ErrInvalidToken
		}
		if err := s.revoke(ctx, claims); err != nil {
			return err
		}
	}

	s.logger.Info("signed out", "user_id", user.ID)
	return nil
}

// Authenticate validates an access token and checks it has not been revoked.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	u := &User{ID: claims.UserID, Email: claims.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
	}
	return u, nil
}

func (s *Service) ensureNotRevoked(ctx context.Context, tokenID string) error {
	revoked, err := s.revocations.IsRevoked(ctx, tokenID)
	if err != nil {
		return internal.NewInternalError("Failed to validate token", err)
	}
	if revoked {
		return internal.ErrTokenRevoked
	}
	return nil
}

func (s *Service) revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return internal.NewInternalError("Failed to revoke token", err)
	}
	return nil
}

func (s *Service) issue(userID, email string) (*AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		return nil, internal.NewInternalError("Failed to issue tokens", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		return nil, internal.NewInternalError("Failed to issue tokens", err)
	}

	return &AuthTokens{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         &User{ID: userID, Email: email},
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
