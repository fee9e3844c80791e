// internal/models/tenant.go
package models

// TenantContext identifies the organization and user behind a request.
// Every cache key and query execution is scoped by OrgID.
type TenantContext struct {
	OrgID          string   `json:"orgId"`
	UserID         string   `json:"userId"`
	Role           string   `json:"role"`
	LocationAccess []string `json:"locationAccess,omitempty"`
}
