package services

import (
	"context"
	"errors"
	"testing"

	"participium/models"
)

func TestCategoryRouterResolveRole(t *testing.T) {
	store := newFakeStore()
	store.categoryRoles[models.CategoryPublicLighting] = 7
	store.categoryRoles[models.CategoryWaste] = 3

	router := NewCategoryRouter(store)
	if err := router.Load(context.Background()); err != nil {
		t.Fatalf("failed to load router: %v", err)
	}

	roleID, err := router.ResolveRole(models.CategoryPublicLighting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roleID != 7 {
		t.Errorf("resolved role %d, want 7", roleID)
	}

	if _, err := router.ResolveRole(models.CategorySewerSystem); !errors.Is(err, models.ErrCategoryNotConfigured) {
		t.Fatalf("expected not-configured error, got %v", err)
	}
}

func TestCategoryRouterLastWriteWins(t *testing.T) {
	store := newFakeStore()
	store.categoryRoles[models.CategoryPublicLighting] = 7

	router := NewCategoryRouter(store)
	if err := router.Load(context.Background()); err != nil {
		t.Fatalf("failed to load router: %v", err)
	}

	if err := router.MapCategoryRole(context.Background(), models.CategoryPublicLighting, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roleID, err := router.ResolveRole(models.CategoryPublicLighting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roleID != 12 {
		t.Errorf("resolved role %d after remap, want 12", roleID)
	}

	// The store sees the same mapping.
	if store.categoryRoles[models.CategoryPublicLighting] != 12 {
		t.Errorf("store holds role %d, want 12", store.categoryRoles[models.CategoryPublicLighting])
	}
}
