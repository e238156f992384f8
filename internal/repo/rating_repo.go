// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Rating
// model.
//
// The (recipe_id, user_id) pair is unique: a user's resubmission is an
// update of their existing row, never a second insert. The running
// aggregate on the recipe row is maintained by the service layer inside
// the same transaction as the rating upsert.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// GetRating returns the user's rating for a recipe, or ErrNotFound.
func GetRating(ctx context.Context, db *gorm.DB, recipeID, userID string) (*domain.Rating, error) {
	var r domain.Rating
	err := db.WithContext(ctx).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertRating inserts the user's rating or replaces their prior score.
// It returns the previous score and whether one existed, which the service
// layer needs for the delta update of the recipe aggregate.
func UpsertRating(ctx context.Context, db *gorm.DB, recipeID, userID string, score int) (prior int, existed bool, err error) {
	existing, err := GetRating(ctx, db, recipeID, userID)
	switch {
	case err == nil:
		prior = existing.Score
		existed = true
		existing.Score = score
		existing.UpdatedAt = time.Now().UTC()
		err = db.WithContext(ctx).Save(existing).Error
		return prior, existed, err
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now().UTC()
		r := &domain.Rating{
			ID:        uuid.NewString(),
			RecipeID:  recipeID,
			UserID:    userID,
			Score:     score,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return 0, false, db.WithContext(ctx).Create(r).Error
	default:
		return 0, false, err
	}
}

// CountRatings returns the number of rating rows for a recipe. Used by
// tests and consistency checks; the serving path reads the recipe aggregate.
func CountRatings(ctx context.Context, db *gorm.DB, recipeID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Rating{}).
		Where("recipe_id = ?", recipeID).
		Count(&n).Error
	return n, err
}
