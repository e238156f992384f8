// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the homepage content row plus the
// small aggregate queries behind the public homepage sections (hall of
// fame, top dishes, signature dishes, recent recipes). Each function is
// context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// homepageRowID pins the singleton content row.
const homepageRowID = 1

// defaultWelcomeMessage seeds the content row on first access.
const defaultWelcomeMessage = "Welcome to my kitchen. Pull up a chair — the food is hot and the love is hotter."

// avgRatingExpr ranks recipes by their running average; unrated recipes
// sort last (-1) instead of dividing by zero.
const avgRatingExpr = "CASE WHEN rating_count > 0 THEN CAST(rating_sum AS REAL) / rating_count ELSE -1 END DESC"

// GetOrCreateHomepage returns the singleton homepage content row, creating
// it with defaults on first access.
func GetOrCreateHomepage(ctx context.Context, db *gorm.DB) (*domain.HomepageContent, error) {
	var h domain.HomepageContent
	err := db.WithContext(ctx).Where("id = ?", homepageRowID).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h = domain.HomepageContent{
			ID:             homepageRowID,
			WelcomeMessage: defaultWelcomeMessage,
			UpdatedAt:      time.Now().UTC(),
		}
		if cerr := db.WithContext(ctx).Create(&h).Error; cerr != nil {
			return nil, cerr
		}
		return &h, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveHomepage persists the content row.
func SaveHomepage(ctx context.Context, db *gorm.DB, h *domain.HomepageContent) error {
	h.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(h).Error
}

// TopRatedRecipes returns up to limit approved recipes ordered by average
// rating descending (unrated last).
func TopRatedRecipes(ctx context.Context, db *gorm.DB, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusApproved).
		Order(avgRatingExpr).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SignatureRecipes returns up to limit approved signature dishes, most
// recent first.
func SignatureRecipes(ctx context.Context, db *gorm.DB, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := db.WithContext(ctx).
		Where("status = ? AND is_signature = ?", domain.StatusApproved, true).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecentRecipes returns up to limit approved recipes, most recent first.
func RecentRecipes(ctx context.Context, db *gorm.DB, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusApproved).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
