package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/authz"
	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RatingService maintains per-recipe rating aggregates. Each actor holds at
// most one rating per recipe; resubmitting replaces the previous score and
// adjusts the aggregate by the delta, so the stored sum and count always
// equal what a full recount over the ratings table would produce.
type RatingService struct {
	DB  *gorm.DB
	Bus events.Publisher
	// Locks must be the same instance RecipeService uses, so a rating
	// never interleaves with a delete or edit of the same recipe.
	Locks *RecipeLocks
	// IdempotencyTTL bounds how long a recorded Idempotency-Key shields
	// retries. Zero disables key recording.
	IdempotencyTTL time.Duration
}

// NewRatingService constructs a RatingService.
func NewRatingService(db *gorm.DB, bus events.Publisher, locks *RecipeLocks) *RatingService {
	return &RatingService{DB: db, Bus: bus, Locks: locks, IdempotencyTTL: 24 * time.Hour}
}

// Submit records or replaces the actor's rating for a recipe and updates
// the recipe's aggregate in the same transaction. Only approved recipes
// accept ratings. Emits a rated event carrying the new aggregate; the
// rater's identity and score never leave this method.
//
// idemKey, when non-blank, is recorded after the commit so a retried
// request with the same key replays instead of re-applying.
func (s *RatingService) Submit(ctx context.Context, actor authz.Actor, recipeID string, score int, idemKey string) (*domain.Recipe, error) {
	tr := otel.Tracer("services/RatingService")
	ctx, span := tr.Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
		attribute.String("recipe.id", recipeID),
	))
	defer span.End()

	if actor.Anonymous() {
		return nil, ErrForbidden
	}
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}

	unlock := s.Locks.Lock(recipeID)
	defer unlock()

	var out *domain.Recipe
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, deleted, err := repo.GetRecipeAny(ctx, tx, recipeID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		if err != nil {
			return err
		}
		if deleted {
			return ErrConflict
		}
		if r.Status != domain.StatusApproved {
			return ErrRecipeNotFound
		}

		prior, existed, err := repo.UpsertRating(ctx, tx, recipeID, actor.ID, score)
		if err != nil {
			return err
		}
		if existed {
			r.RatingSum += int64(score - prior)
		} else {
			r.RatingSum += int64(score)
			r.RatingCount++
		}
		r.Version++
		if err := repo.SaveRecipe(ctx, tx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if idemKey != "" && s.IdempotencyTTL > 0 {
		// Best effort: a failed key write only weakens retry dedupe.
		if _, kerr := repo.CreateIdempotency(ctx, s.DB, actor.ID, recipeID, idemKey, 200, s.IdempotencyTTL); kerr != nil && !errors.Is(kerr, repo.ErrDuplicate) {
			log.Warn().Err(kerr).Str("recipe_id", recipeID).Msg("idempotency key not recorded")
		}
	}

	if s.Bus != nil {
		s.Bus.Publish(events.Event{
			Kind:     events.KindRated,
			RecipeID: out.ID,
			Version:  out.Version,
			Payload: events.RatingSummary{
				RecipeID: out.ID,
				Average:  out.AverageRating(),
				Count:    out.RatingCount,
				Version:  out.Version,
			},
		})
	}
	return out, nil
}

// Mine returns the actor's own rating for a recipe, or repo.ErrNotFound.
func (s *RatingService) Mine(ctx context.Context, actor authz.Actor, recipeID string) (*domain.Rating, error) {
	if actor.Anonymous() {
		return nil, ErrForbidden
	}
	rt, err := repo.GetRating(ctx, s.DB, recipeID, actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	return rt, err
}
