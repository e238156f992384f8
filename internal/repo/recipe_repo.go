// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Recipe model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Capability checks, status transitions,
// version bumps, and event emission all live in the service layer.
//
// Error semantics:
//   - When a recipe is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - GetRecipeAny additionally surfaces soft-deleted rows so the service
//     layer can distinguish "raced a delete" from "never existed".
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRecipe inserts a new Recipe row. ID and timestamps are assigned
// here; the caller decides the initial status (moderation policy).
func CreateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe) (*domain.Recipe, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRecipe fetches a live recipe by id, or ErrNotFound.
func GetRecipe(ctx context.Context, db *gorm.DB, id string) (*domain.Recipe, error) {
	var r domain.Recipe
	err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipeAny fetches a recipe by id including soft-deleted rows. The
// second return value reports whether the row has been deleted, which the
// service layer maps to a conflict for mutations that raced a delete.
func GetRecipeAny(ctx context.Context, db *gorm.DB, id string) (*domain.Recipe, bool, error) {
	var r domain.Recipe
	err := db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, false, err
	}
	return &r, r.DeletedAt.Valid, nil
}

// SaveRecipe persists all fields of an already-loaded recipe row.
func SaveRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe) error {
	r.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(r).Error
}

// DeleteRecipe soft-deletes a recipe by id. Returns ErrNotFound when no
// live row matched.
func DeleteRecipe(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Recipe{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecipesVisible returns recipes visible to the given viewer, most
// recent first:
//   - anonymous viewers see approved recipes only
//   - members additionally see their own recipes in any status
//   - moderators and owner_admins see everything
func ListRecipesVisible(ctx context.Context, db *gorm.DB, viewerID, viewerRole string) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := visibleScope(db.WithContext(ctx).Model(&domain.Recipe{}), viewerID, viewerRole).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// visibleScope applies the viewer's visibility rule to a recipe query.
func visibleScope(q *gorm.DB, viewerID, viewerRole string) *gorm.DB {
	switch viewerRole {
	case domain.RoleModerator, domain.RoleOwnerAdmin:
		return q
	case domain.RoleMember:
		return q.Where("status = ? OR author_id = ?", domain.StatusApproved, viewerID)
	default:
		return q.Where("status = ?", domain.StatusApproved)
	}
}

// ListRecipesVisiblePage returns one page of visible recipes plus the total
// count, most recent first.
func ListRecipesVisiblePage(ctx context.Context, db *gorm.DB, viewerID, viewerRole string, offset, limit int) ([]domain.Recipe, int64, error) {
	var total int64
	if err := visibleScope(db.WithContext(ctx).Model(&domain.Recipe{}), viewerID, viewerRole).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Recipe
	err := visibleScope(db.WithContext(ctx).Model(&domain.Recipe{}), viewerID, viewerRole).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// RecipesStats returns the visible row count and the latest update time for
// the viewer's listing. Used to build weak ETags for conditional GETs.
func RecipesStats(ctx context.Context, db *gorm.DB, viewerID, viewerRole string) (int64, *time.Time, error) {
	var count int64
	if err := visibleScope(db.WithContext(ctx).Model(&domain.Recipe{}), viewerID, viewerRole).
		Count(&count).Error; err != nil {
		return 0, nil, err
	}
	var maxTS *time.Time
	if err := visibleScope(db.WithContext(ctx).Model(&domain.Recipe{}), viewerID, viewerRole).
		Select("MAX(updated_at)").Scan(&maxTS).Error; err != nil {
		return 0, nil, err
	}
	return count, maxTS, nil
}

// ListPendingRecipes returns the default moderation queue: pending recipes,
// oldest first so reviewers work in submission order.
func ListPendingRecipes(ctx context.Context, db *gorm.DB) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListRecipesByAuthor returns all of one author's recipes, any status,
// most recent first.
func ListRecipesByAuthor(ctx context.Context, db *gorm.DB, authorID string) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
