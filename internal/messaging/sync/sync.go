// Package sync reconciles a user's threads against the external campaign
// service. A sync pass creates missing threads keyed by (campaign id, user)
// and leaves existing ones untouched; upstream failures degrade to zero
// threads synced so the caller still serves whatever the store already holds.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hyptrb/messaging/internal/campaign"
	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
	"github.com/hyptrb/messaging/internal/platform/id"
)

// CampaignLister is the slice of the campaign client the engine consumes.
type CampaignLister interface {
	ListClientCampaigns(ctx context.Context, email string) ([]campaign.Campaign, error)
	ListCollaboratorJobs(ctx context.Context, collaboratorID string, page int) (campaign.JobsPage, error)
}

// Engine reconciles campaign listings into threads.
type Engine struct {
	threads   storage.ThreadStore
	campaigns CampaignLister
	now       func() time.Time
}

// NewEngine creates a sync engine over the given thread store and campaign
// listing source.
func NewEngine(threads storage.ThreadStore, campaigns CampaignLister) (*Engine, error) {
	if threads == nil {
		return nil, fmt.Errorf("thread store is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign lister is required")
	}
	return &Engine{threads: threads, campaigns: campaigns, now: time.Now}, nil
}

// SyncUserThreads creates missing threads for the user's current campaigns
// and returns how many were newly created. Roles that do not own or work
// campaigns are a no-op.
func (e *Engine) SyncUserThreads(ctx context.Context, userID, email string, role domain.Role) int {
	if e == nil || !role.SyncsCampaigns() {
		return 0
	}

	switch role {
	case domain.RoleClient:
		return e.syncClient(ctx, userID, email)
	case domain.RoleCollaborator:
		return e.syncCollaborator(ctx, userID)
	}
	return 0
}

func (e *Engine) syncClient(ctx context.Context, userID, email string) int {
	campaigns, err := e.campaigns.ListClientCampaigns(ctx, email)
	if err != nil {
		log.Printf("sync campaigns for client %s: %v", email, err)
		return 0
	}

	created := 0
	for _, entry := range campaigns {
		if entry.ID == "" {
			continue
		}
		if e.ensureThread(ctx, entry.ID, entry.Name, userID) {
			created++
		}
	}
	return created
}

func (e *Engine) syncCollaborator(ctx context.Context, collaboratorID string) int {
	firstPage, err := e.campaigns.ListCollaboratorJobs(ctx, collaboratorID, 1)
	if err != nil {
		log.Printf("sync jobs for collaborator %s: %v", collaboratorID, err)
		return 0
	}

	// First occurrence wins; later pages never overwrite a campaign name.
	names := make(map[string]string)
	var order []string
	collect := func(jobs []campaign.Job) {
		for _, job := range jobs {
			if job.CampaignID == "" {
				continue
			}
			if _, seen := names[job.CampaignID]; seen {
				continue
			}
			names[job.CampaignID] = job.CampaignName
			order = append(order, job.CampaignID)
		}
	}
	collect(firstPage.Jobs)

	for page := 2; page <= firstPage.TotalPages; page++ {
		nextPage, err := e.campaigns.ListCollaboratorJobs(ctx, collaboratorID, page)
		if err != nil {
			log.Printf("sync jobs page %d for collaborator %s: %v", page, collaboratorID, err)
			continue
		}
		collect(nextPage.Jobs)
	}

	created := 0
	for _, campaignID := range order {
		if e.ensureThread(ctx, campaignID, names[campaignID], collaboratorID) {
			created++
		}
	}
	return created
}

func (e *Engine) ensureThread(ctx context.Context, campaignID, campaignName, ownerID string) bool {
	title := campaignName
	if title == "" {
		title = "Unnamed Campaign"
	}
	threadID, err := id.NewPrefixedID("t")
	if err != nil {
		log.Printf("new thread id for campaign %s: %v", campaignID, err)
		return false
	}
	now := e.now().UTC()
	_, created, err := e.threads.CreateThread(ctx, storage.ThreadRecord{
		ID:          threadID,
		Title:       title,
		Description: fmt.Sprintf("Messages for campaign %s", title),
		CampaignID:  campaignID,
		OwnerID:     ownerID,
		Status:      domain.ThreadStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		log.Printf("sync thread for campaign %s: %v", campaignID, err)
		return false
	}
	return created
}
