// Package events defines the domain event model and the in-process change
// event bus that fans events out to every connected session.
//
// Events are immutable facts describing an accepted state change. Recipe
// events carry the full updated snapshot (not a diff) so consumers replace
// their local copy wholesale and never need merge logic. The one exception
// is the rated event, which carries only the new average and count so that
// no subscriber learns which actor rated or what the raw score was.
package events

import (
	"time"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// Kind identifies the type of a domain event.
type Kind string

// Event kinds. Consumers must ignore kinds they do not recognize.
const (
	KindCreated          Kind = "created"
	KindUpdated          Kind = "updated"
	KindStatusChanged    Kind = "status_changed"
	KindSignatureToggled Kind = "signature_toggled"
	KindPhotoUpdated     Kind = "photo_updated"
	KindRated            Kind = "rated"
	KindDeleted          Kind = "deleted"
	KindProfileUpdated   Kind = "profile_updated"
	KindHomepageUpdated  Kind = "homepage_updated"
)

// Event is the envelope broadcast to subscribers.
//
// RecipeID is empty for homepage-wide and user-wide events. Version is the
// recipe's logical version at the time the event was accepted; consumers
// compare it against their locally held version and discard events that are
// not newer (newer-version-wins, not newer-arrival-wins).
type Event struct {
	Kind     Kind   `json:"kind"`
	RecipeID string `json:"recipe_id,omitempty"`
	Version  int64  `json:"version,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// RecipeSnapshot is the full recipe view carried by created, updated,
// status_changed, signature_toggled, photo_updated, and deleted events.
// It mirrors what list/detail endpoints serve, including the derived
// average, so clients can swap it in without a follow-up fetch.
type RecipeSnapshot struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Ingredients  []string  `json:"ingredients"`
	Steps        string    `json:"steps"`
	Servings     int       `json:"servings"`
	Status       string    `json:"status"`
	IsSignature  bool      `json:"is_signature"`
	ImageRef     string    `json:"image_ref,omitempty"`
	ImageVersion int64     `json:"image_version"`
	Version      int64     `json:"version"`
	Average      float64   `json:"average"`
	Count        int64     `json:"count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SnapshotOf builds the broadcast view of a recipe.
func SnapshotOf(r domain.Recipe) RecipeSnapshot {
	return RecipeSnapshot{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Title:        r.Title,
		Description:  r.Description,
		Ingredients:  r.Ingredients,
		Steps:        r.Steps,
		Servings:     r.Servings,
		Status:       r.Status,
		IsSignature:  r.IsSignature,
		ImageRef:     r.ImageRef,
		ImageVersion: r.ImageVersion,
		Version:      r.Version,
		Average:      r.AverageRating(),
		Count:        r.RatingCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// RatingSummary is the payload of a rated event: the new aggregate only,
// never the submitting actor or their raw score.
type RatingSummary struct {
	RecipeID string  `json:"recipe_id"`
	Average  float64 `json:"average"`
	Count    int64   `json:"count"`
	Version  int64   `json:"version"`
}

// ProfileSnapshot is the public view of a user carried by profile_updated
// events. Email is included because the original admin dashboard renders it;
// credentials never appear here.
type ProfileSnapshot struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Bio          string `json:"bio"`
	GithubLink   string `json:"github_link"`
	ImageRef     string `json:"image_ref,omitempty"`
	ImageVersion int64  `json:"image_version"`
	Deleted      bool   `json:"deleted,omitempty"`
}

// ProfileOf builds the broadcast view of a user.
func ProfileOf(u domain.User) ProfileSnapshot {
	return ProfileSnapshot{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Bio:          u.Bio,
		GithubLink:   u.GithubLink,
		ImageRef:     u.ImageRef,
		ImageVersion: u.ImageVersion,
	}
}

// HomepageSnapshot is the payload of homepage_updated events.
type HomepageSnapshot struct {
	WelcomeMessage string    `json:"welcome_message"`
	ImageRef       string    `json:"image_ref,omitempty"`
	ImageVersion   int64     `json:"image_version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HomepageOf builds the broadcast view of the homepage content row.
func HomepageOf(h domain.HomepageContent) HomepageSnapshot {
	return HomepageSnapshot{
		WelcomeMessage: h.WelcomeMessage,
		ImageRef:       h.ImageRef,
		ImageVersion:   h.ImageVersion,
		UpdatedAt:      h.UpdatedAt,
	}
}
