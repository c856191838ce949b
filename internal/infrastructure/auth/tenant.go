package auth

import (
	"fmt"
	"sync"
)

// TenantContext is the tenant identity attached to a verified request.
type TenantContext struct {
	TenantID string
	Subject  string
}

// ExtractTenant pulls the tenant identity out of verified claims.
func ExtractTenant(claims *Claims) TenantContext {
	return TenantContext{
		TenantID: claims.TenantID,
		Subject:  claims.Subject,
	}
}

// CrossTenantAccessError reports a request touching another tenant's
// resource.
type CrossTenantAccessError struct {
	UserTenant     string
	ResourceTenant string
}

func (e *CrossTenantAccessError) Error() string {
	return fmt.Sprintf("cross-tenant access denied: user tenant %q, resource tenant %q", e.UserTenant, e.ResourceTenant)
}

// CheckTenantAccess verifies the caller's tenant owns the resource. An
// empty resource tenant means the resource is unscoped and open.
func CheckTenantAccess(tc TenantContext, resourceTenant string) error {
	if resourceTenant == "" {
		return nil
	}
	if tc.TenantID != resourceTenant {
		return &CrossTenantAccessError{UserTenant: tc.TenantID, ResourceTenant: resourceTenant}
	}
	return nil
}

// TenantStore tracks known tenant ids. Registration is idempotent.
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[string]struct{}
}

// NewTenantStore creates an empty tenant registry.
func NewTenantStore() *TenantStore {
	return &TenantStore{tenants: make(map[string]struct{})}
}

// Register adds a tenant; repeats are no-ops.
func (s *TenantStore) Register(tenantID string) {
	if tenantID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenantID] = struct{}{}
}

// Known reports whether a tenant has been registered.
func (s *TenantStore) Known(tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tenants[tenantID]
	return ok
}

// List returns the registered tenant ids in unspecified order.
func (s *TenantStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		out = append(out, id)
	}
	return out
}
