// Package app is the messaging service layer. It enforces access scoping and
// the error taxonomy over the storage layer, resolves profiles through the
// campaign service, and triggers campaign sync ahead of thread listings.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hyptrb/messaging/internal/campaign"
	"github.com/hyptrb/messaging/internal/media"
	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
	"github.com/hyptrb/messaging/internal/platform/pagination"
)

// ProfileDirectory is the slice of the campaign client used to resolve roles
// and profiles for first-seen users.
type ProfileDirectory interface {
	GetRole(ctx context.Context, email string) (campaign.Role, error)
	GetClientProfile(ctx context.Context, email string) (campaign.Profile, error)
	GetAdminProfile(ctx context.Context, email string) (campaign.Profile, error)
	GetCollaboratorProfile(ctx context.Context, collaboratorID string) (campaign.Profile, error)
}

// Syncer reconciles a user's threads against the campaign service.
type Syncer interface {
	SyncUserThreads(ctx context.Context, userID, email string, role domain.Role) int
}

// Config assembles the service dependencies. Probe is optional and defaults
// to image dimension probing from local files.
type Config struct {
	Store     storage.Store
	Directory ProfileDirectory
	Syncer    Syncer
	PageSizes pagination.PageSizeConfig
	Probe     func(path string) (media.Dimensions, bool)
	Now       func() time.Time
}

// Service exposes the messaging operations consumed by the request layer.
type Service struct {
	store     storage.Store
	directory ProfileDirectory
	syncer    Syncer
	pageSizes pagination.PageSizeConfig
	probe     func(path string) (media.Dimensions, bool)
	now       func() time.Time
}

// New creates the messaging service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Directory == nil {
		return nil, fmt.Errorf("profile directory is required")
	}
	if cfg.Syncer == nil {
		return nil, fmt.Errorf("syncer is required")
	}
	if cfg.Probe == nil {
		cfg.Probe = media.ProbeImage
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		directory: cfg.Directory,
		syncer:    cfg.Syncer,
		pageSizes: cfg.PageSizes,
		probe:     cfg.Probe,
		now:       cfg.Now,
	}, nil
}
