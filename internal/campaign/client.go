// Package campaign is the HTTP client for the external campaign service. It
// resolves user roles and profiles and lists the campaigns and jobs the sync
// engine reconciles into threads.
//
// Absent data (404) is reported as ErrNotFound or an empty listing so callers
// can tell "no data" apart from transport failures, which surface as
// *RequestError.
package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound indicates the campaign service has no record for the subject.
var ErrNotFound = errors.New("campaign service record not found")

// RequestError wraps a failed campaign service call. Callers log and tolerate
// it; it never carries a 404.
type RequestError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("campaign service %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("campaign service %s: unexpected status %d", e.Operation, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

const defaultTimeout = 10 * time.Second

// Role is the service-assigned role payload for one email address.
type Role struct {
	Role string `json:"role"`
}

// Profile carries the display fields extracted from a role-specific profile.
type Profile struct {
	DisplayName string
	AvatarURL   string
	Phone       string
}

// Campaign is one owner campaign listing entry.
type Campaign struct {
	ID   string `json:"_id"`
	Name string `json:"campaignName"`
}

// Job is one collaborator job entry nesting its campaign.
type Job struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
}

// JobsPage is one page of collaborator jobs. TotalPages on the first page
// drives the sequential fetch of the rest.
type JobsPage struct {
	Jobs       []Job `json:"jobs"`
	TotalPages int   `json:"total_pages"`
}

// Client calls the external campaign service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a campaign service client for the provided base URL.
func New(baseURL string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("campaign service base url is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// GetRole resolves the service role assigned to an email address.
func (c *Client) GetRole(ctx context.Context, email string) (Role, error) {
	var role Role
	err := c.getJSON(ctx, "get role", "roles/"+url.PathEscape(email), nil, &role)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// GetClientProfile loads a campaign owner's business profile.
func (c *Client) GetClientProfile(ctx context.Context, email string) (Profile, error) {
	var payload struct {
		BusinessName string `json:"businessName"`
	}
	err := c.getJSON(ctx, "get client profile", "clients/get/"+url.PathEscape(email), nil, &payload)
	if err != nil {
		return Profile{}, err
	}
	return Profile{DisplayName: payload.BusinessName}, nil
}

// GetAdminProfile loads a support admin's profile.
func (c *Client) GetAdminProfile(ctx context.Context, email string) (Profile, error) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		PhotoURL string `json:"photo_url"`
		Phone    string `json:"phone_number"`
	}
	err := c.getJSON(ctx, "get admin profile", "admin/profile/"+url.PathEscape(email), nil, &payload)
	if err != nil {
		return Profile{}, err
	}
	displayName := payload.Name
	if displayName == "" {
		displayName = payload.Email
	}
	return Profile{DisplayName: displayName, AvatarURL: payload.PhotoURL, Phone: payload.Phone}, nil
}

// GetCollaboratorProfile loads a collaborator's profile by their service id.
// The service wraps this payload in a success envelope on newer deployments.
func (c *Client) GetCollaboratorProfile(ctx context.Context, collaboratorID string) (Profile, error) {
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`

		FullName string `json:"full_name"`
		PhotoURL string `json:"profile_picture_url"`
		Phone    string `json:"contact_phone"`
	}
	err := c.getJSON(ctx, "get collaborator profile", "collaborators/get/profile/"+url.PathEscape(collaboratorID), nil, &envelope)
	if err != nil {
		return Profile{}, err
	}
	if envelope.Success && len(envelope.Data) > 0 {
		var payload struct {
			FullName string `json:"full_name"`
			PhotoURL string `json:"profile_picture_url"`
			Phone    string `json:"contact_phone"`
		}
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return Profile{}, &RequestError{Operation: "get collaborator profile", Err: fmt.Errorf("decode envelope: %w", err)}
		}
		return Profile{DisplayName: payload.FullName, AvatarURL: payload.PhotoURL, Phone: payload.Phone}, nil
	}
	return Profile{DisplayName: envelope.FullName, AvatarURL: envelope.PhotoURL, Phone: envelope.Phone}, nil
}

// ListClientCampaigns lists every campaign owned by one client email. An
// absent client yields an empty list.
func (c *Client) ListClientCampaigns(ctx context.Context, email string) ([]Campaign, error) {
	body, err := c.get(ctx, "list client campaigns", "clients/get/all/campaigns/"+url.PathEscape(email), nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var envelope struct {
		Data []Campaign `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}

	var campaigns []Campaign
	if err := json.Unmarshal(body, &campaigns); err != nil {
		return nil, &RequestError{Operation: "list client campaigns", Err: fmt.Errorf("decode response: %w", err)}
	}
	return campaigns, nil
}

// ListCollaboratorJobs lists one page of a collaborator's jobs. The first
// page's TotalPages drives fetching the rest. An absent collaborator yields
// an empty single page.
func (c *Client) ListCollaboratorJobs(ctx context.Context, collaboratorID string, page int) (JobsPage, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{"page": {strconv.Itoa(page)}}
	var jobsPage JobsPage
	err := c.getJSON(ctx, "list collaborator jobs", "collaborators/get/jobs/"+url.PathEscape(collaboratorID), query, &jobsPage)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return JobsPage{TotalPages: 1}, nil
		}
		return JobsPage{}, err
	}
	if jobsPage.TotalPages < 1 {
		jobsPage.TotalPages = 1
	}
	return jobsPage, nil
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	body, err := c.get(ctx, operation, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("campaign client is not configured")
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RequestError{Operation: operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Operation: operation, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &RequestError{Operation: operation, Err: fmt.Errorf("read response: %w", err)}
	}
	return body, nil
}
