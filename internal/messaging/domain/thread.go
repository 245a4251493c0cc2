package domain

import "strings"

// ThreadStatusActive is the only status listings consider.
const ThreadStatusActive = "active"

const supportCampaignPrefix = "support-"

// SupportCampaignID derives the synthetic campaign id for a user's ad-hoc
// support thread. Keying the thread on it reuses the (campaign id, owner)
// uniqueness so each user gets exactly one support thread.
func SupportCampaignID(userID string) string {
	return supportCampaignPrefix + userID
}

// IsSupportCampaignID reports whether the campaign id is a synthetic support key.
func IsSupportCampaignID(campaignID string) bool {
	return strings.HasPrefix(campaignID, supportCampaignPrefix)
}

// DefaultConversationName derives a name for a single-participant
// conversation from its thread title.
func DefaultConversationName(threadTitle string) string {
	title := strings.TrimSpace(threadTitle)
	if title == "" {
		title = "Campaign"
	}
	return title + " Discussion"
}
