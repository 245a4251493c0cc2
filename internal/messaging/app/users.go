package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/hyptrb/messaging/internal/auth/identity"
	"github.com/hyptrb/messaging/internal/campaign"
	apperrors "github.com/hyptrb/messaging/internal/errors"
	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
	"github.com/hyptrb/messaging/internal/platform/pagination"
)

// EnsureUser upserts the authenticated identity into the user store. The
// role and role-specific profile are fetched from the campaign service on
// first access and memoized; upstream failures degrade to the identity
// basics so authentication never blocks on the campaign service. A user
// gaining a campaign role for the first time gets an initial thread sync.
func (s *Service) EnsureUser(ctx context.Context, ident identity.Identity) (storage.UserRecord, error) {
	userID := strings.TrimSpace(ident.UserID)
	if userID == "" {
		return storage.UserRecord{}, apperrors.New(apperrors.CodeInvalidInput, "user id is required")
	}
	now := s.now().UTC()

	existing, err := s.store.GetUser(ctx, userID)
	switch {
	case err == nil && existing.Role != domain.RoleUnknown:
		record := existing
		if record.DisplayName == "" {
			record.DisplayName = ident.DisplayName
		}
		if record.AvatarURL == "" {
			record.AvatarURL = ident.AvatarURL
		}
		if record.Phone == "" {
			record.Phone = ident.Phone
		}
		record.Email = ident.Email
		record.EmailVerified = ident.EmailVerified
		record.UpdatedAt = now
		if err := s.store.PutUser(ctx, record); err != nil {
			return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "update user", err)
		}
		if err := s.store.TouchUserLastSeen(ctx, userID, now); err != nil {
			return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "touch user last seen", err)
		}
		return s.GetUser(ctx, userID)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get user", err)
	}

	record := storage.UserRecord{
		ID:            userID,
		Email:         ident.Email,
		DisplayName:   ident.DisplayName,
		AvatarURL:     ident.AvatarURL,
		Phone:         ident.Phone,
		EmailVerified: ident.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err == nil {
		record.CreatedAt = existing.CreatedAt
		record.Role = existing.Role
	}
	if record.DisplayName == "" && record.Email != "" {
		if at := strings.IndexByte(record.Email, '@'); at > 0 {
			record.DisplayName = record.Email[:at]
		}
	}
	if record.DisplayName == "" {
		record.DisplayName = "Unknown User"
	}

	if record.Email != "" && record.Role == domain.RoleUnknown {
		s.resolveRoleAndProfile(ctx, &record)
	}

	if err := s.store.PutUser(ctx, record); err != nil {
		return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "create user", err)
	}
	if err := s.store.TouchUserLastSeen(ctx, userID, now); err != nil {
		return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "touch user last seen", err)
	}

	if record.Role.SyncsCampaigns() {
		s.syncer.SyncUserThreads(ctx, userID, record.Email, record.Role)
	}
	return s.GetUser(ctx, userID)
}

func (s *Service) resolveRoleAndProfile(ctx context.Context, record *storage.UserRecord) {
	roleData, err := s.directory.GetRole(ctx, record.Email)
	if err != nil {
		if !errors.Is(err, campaign.ErrNotFound) {
			log.Printf("fetch role for %s: %v", record.Email, err)
		}
		return
	}
	role := domain.ParseRole(roleData.Role)
	if role == domain.RoleUnknown {
		return
	}
	record.Role = role

	var profile campaign.Profile
	switch role {
	case domain.RoleClient:
		profile, err = s.directory.GetClientProfile(ctx, record.Email)
	case domain.RoleAdmin:
		profile, err = s.directory.GetAdminProfile(ctx, record.Email)
	case domain.RoleCollaborator:
		profile, err = s.directory.GetCollaboratorProfile(ctx, record.ID)
	}
	if err != nil {
		if !errors.Is(err, campaign.ErrNotFound) {
			log.Printf("fetch %s profile for %s: %v", role, record.Email, err)
		}
		return
	}
	if profile.DisplayName != "" {
		record.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		record.AvatarURL = profile.AvatarURL
	}
	if profile.Phone != "" {
		record.Phone = profile.Phone
	}
}

// GetUser loads one user by id.
func (s *Service) GetUser(ctx context.Context, userID string) (storage.UserRecord, error) {
	record, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.UserRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "user not found", map[string]string{"Entity": "user"})
		}
		return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get user", err)
	}
	return record, nil
}

// ListUsers lists users newest-first with clamped pagination.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]storage.UserRecord, error) {
	limit = pagination.ClampPageSize(limit, s.pageSizes)
	offset = pagination.ClampOffset(offset)
	records, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "list users", err)
	}
	return records, nil
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
	Phone       *string
}

// UpdateProfile applies a partial profile update to one user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (storage.UserRecord, error) {
	record, err := s.GetUser(ctx, userID)
	if err != nil {
		return storage.UserRecord{}, err
	}
	if update.DisplayName != nil {
		record.DisplayName = strings.TrimSpace(*update.DisplayName)
	}
	if update.AvatarURL != nil {
		record.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Phone != nil {
		record.Phone = strings.TrimSpace(*update.Phone)
	}
	record.UpdatedAt = s.now().UTC()
	if err := s.store.PutUser(ctx, record); err != nil {
		return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "update profile", err)
	}
	return s.GetUser(ctx, userID)
}
