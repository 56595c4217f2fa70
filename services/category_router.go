package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/apex/log"

	"participium/models"
)

// CategoryRoleStore is the persistence the router needs: the
// admin-maintained category to role table.
type CategoryRoleStore interface {
	LoadCategoryRoles(ctx context.Context) (map[models.Category]int64, error)
	UpsertCategoryRole(ctx context.Context, category models.Category, roleID int64) error
}

// CategoryRouter maps a report category to the role responsible for
// handling it. Consulted only on the first assignment; once a report is
// assigned, later status changes never re-route by category. The table is
// read-mostly and cached behind a RWMutex.
type CategoryRouter struct {
	store CategoryRoleStore

	mutex sync.RWMutex
	roles map[models.Category]int64
}

// NewCategoryRouter creates a router over the given store.
func NewCategoryRouter(store CategoryRoleStore) *CategoryRouter {
	return &CategoryRouter{
		store: store,
		roles: make(map[models.Category]int64),
	}
}

// Load refreshes the cached table from the store.
func (r *CategoryRouter) Load(ctx context.Context) error {
	roles, err := r.store.LoadCategoryRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to load category role table: %w", err)
	}

	r.mutex.Lock()
	r.roles = roles
	r.mutex.Unlock()

	log.Infof("Loaded %d category role mappings", len(roles))
	return nil
}

// ResolveRole returns the role id responsible for a category, or
// ErrCategoryNotConfigured when no mapping exists. It never guesses.
func (r *CategoryRouter) ResolveRole(category models.Category) (int64, error) {
	r.mutex.RLock()
	roleID, ok := r.roles[category]
	r.mutex.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrCategoryNotConfigured, category)
	}
	return roleID, nil
}

// MapCategoryRole updates the table, last write wins, and keeps the cache
// in step with the store.
func (r *CategoryRouter) MapCategoryRole(ctx context.Context, category models.Category, roleID int64) error {
	if err := r.store.UpsertCategoryRole(ctx, category, roleID); err != nil {
		return fmt.Errorf("failed to update category role mapping: %w", err)
	}

	r.mutex.Lock()
	r.roles[category] = roleID
	r.mutex.Unlock()

	log.Infof("Category %s now routes to role %d", category, roleID)
	return nil
}
