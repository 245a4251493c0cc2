// Package domain holds the pure messaging rules shared by the storage and
// service layers: participant ordering, message classification, and the
// role/keying conventions bridging to the external campaign service.
package domain

import "strings"

// Role identifies a user's relationship to campaigns.
type Role string

const (
	// RoleClient owns campaigns and the threads created for them.
	RoleClient Role = "client"
	// RoleCollaborator works on campaigns through paged job listings.
	RoleCollaborator Role = "collaborator"
	// RoleAdmin staffs the support channel.
	RoleAdmin Role = "admin"
	// RoleUnknown means the campaign service has not resolved a role yet.
	RoleUnknown Role = ""
)

// ParseRole normalizes a role string from the campaign service.
func ParseRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "client":
		return RoleClient
	case "collaborator":
		return RoleCollaborator
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// SyncsCampaigns reports whether the role participates in campaign thread sync.
func (r Role) SyncsCampaigns() bool {
	return r == RoleClient || r == RoleCollaborator
}
