package authority

import (
	"sync"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
)

// Role represents a capability required by a protected operation
type Role string

const (
	Admin     Role = "admin"
	Guardian  Role = "guardian"
	Executor  Role = "executor"
	Allocator Role = "allocator"
)

// Registry manages the roles granted to each address
type Registry struct {
	roles map[string]map[Role]bool
	mutex sync.RWMutex
}

// NewRegistry creates a new role registry
func NewRegistry() *Registry {
	return &Registry{
		roles: make(map[string]map[Role]bool),
	}
}

// Grant grants a role to an address
func (r *Registry) Grant(address string, role Role) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.roles[address] == nil {
		r.roles[address] = make(map[Role]bool)
	}
	r.roles[address][role] = true
}

// Revoke revokes a role from an address
func (r *Registry) Revoke(address string, role Role) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.roles[address], role)
}

// Has checks if an address holds a role
func (r *Registry) Has(address string, role Role) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.roles[address][role]
}

// Require returns an AuthorizationError if the address does not hold the role
func (r *Registry) Require(address string, role Role) error {
	if !r.Has(address, role) {
		return errs.Authorizationf("%s requires %s role", address, role)
	}
	return nil
}

// RolesOf returns the roles held by an address
func (r *Registry) RolesOf(address string) []Role {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	roles := make([]Role, 0, len(r.roles[address]))
	for role := range r.roles[address] {
		roles = append(roles, role)
	}
	return roles
}
