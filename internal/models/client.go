package models

import "strings"

// Permissions understood by the roadmap API
const (
	PermissionRoadmapsRead  = "roadmaps:read"
	PermissionRoadmapsWrite = "roadmaps:write"
	PermissionAll           = "*"
)

// ApiClient is a caller authenticated by a static API key
type ApiClient struct {
	Name        string   `json:"name"`
	ApiKey      string   `json:"-"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the client holds the required permission.
// "roadmaps:*" grants every roadmaps permission and "*" grants everything.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil {
		return false
	}

	for _, perm := range c.Permissions {
		if perm == required || perm == PermissionAll {
			return true
		}
		if strings.HasSuffix(perm, ":*") && strings.HasPrefix(required, strings.TrimSuffix(perm, "*")) {
			return true
		}
	}

	return false
}

// MaskedApiKey returns the first 8 characters of the key for logging
func (c *ApiClient) MaskedApiKey() string {
	if len(c.ApiKey) < 8 {
		return "***"
	}
	return c.ApiKey[:8] + "..."
}
