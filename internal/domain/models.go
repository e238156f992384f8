// Package domain defines the persistence models for users, recipes, ratings,
// and homepage content. These types are mapped with GORM and form the core
// data layer of the recipe catalog application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Role values assigned to users. Ownership of a recipe is a separate
// relation (Recipe.AuthorID == User.ID) and is orthogonal to role.
const (
	RoleMember     = "member"
	RoleModerator  = "moderator"
	RoleOwnerAdmin = "owner_admin"
)

// Recipe moderation statuses. Status transitions happen only through
// services.RecipeService.SetStatus, never by direct field assignment.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// User represents an authenticated identity with a role. Credential issuance
// is handled by an external authentication collaborator; this model stores
// the profile and authorization-relevant attributes only.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username / Email: unique identity attributes.
//   - Role: one of member, moderator, owner_admin (enforced by DB constraint).
//   - FirstName / LastName / Bio / GithubLink: public profile attributes.
//   - ImageRef: opaque blob-store reference for the profile image.
//   - ImageVersion: bumped on every profile image replacement (cache-busting).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type User struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	Username     string         `json:"username"      gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string         `json:"email"         gorm:"type:varchar(254);not null;uniqueIndex"`
	Role         string         `json:"role"          gorm:"type:varchar(20);not null;default:'member';check:role IN ('member','moderator','owner_admin')"`
	FirstName    string         `json:"first_name"    gorm:"type:varchar(150)"`
	LastName     string         `json:"last_name"     gorm:"type:varchar(150)"`
	Bio          string         `json:"bio"           gorm:"type:text"`
	GithubLink   string         `json:"github_link"   gorm:"type:varchar(255)"`
	ImageRef     string         `json:"image_ref"     gorm:"type:varchar(255)"`
	ImageVersion int64          `json:"image_version" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Recipe represents a catalog entry owned by its author. The author relation
// is id-based only (no embedded User struct) so that entity references stay
// acyclic; author lookups go through the repository by id.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AuthorID: owning user id; immutable after creation; indexed.
//   - Title / Description / Ingredients / Steps / Servings: recipe payload.
//   - Status: pending, approved, or declined (enforced by DB constraint).
//   - IsSignature: signature-dish flag, orthogonal to Status.
//   - ImageRef: opaque blob-store reference; empty when no photo is set.
//   - ImageVersion: strictly increases on every accepted photo mutation.
//   - Version: per-recipe logical version, bumped inside every accepted
//     mutation transaction; event consumers compare it to discard stale
//     updates (newer-version-wins).
//   - RatingSum / RatingCount: running aggregate maintained by the rating
//     service; the derived average is RatingSum/RatingCount (0 when empty).
//     RatingSum is never serialized so individual scores cannot be inferred
//     from consecutive snapshots by small-count recipes.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker. A soft-deleted row lets a mutation
//     that lost a race against delete be reported as a conflict rather than
//     not-found.
type Recipe struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	AuthorID     string         `json:"author_id"     gorm:"type:char(36);not null;index:idx_author_recipes"`
	Title        string         `json:"title"         gorm:"type:varchar(200);not null"`
	Description  string         `json:"description"   gorm:"type:text"`
	Ingredients  []string       `json:"ingredients"   gorm:"type:text;serializer:json"`
	Steps        string         `json:"steps"         gorm:"type:text"`
	Servings     int            `json:"servings"      gorm:"not null;default:2"`
	Status       string         `json:"status"        gorm:"type:varchar(20);not null;default:'pending';index;check:status IN ('pending','approved','declined')"`
	IsSignature  bool           `json:"is_signature"  gorm:"not null;default:false"`
	ImageRef     string         `json:"image_ref"     gorm:"type:varchar(255)"`
	ImageVersion int64          `json:"image_version" gorm:"not null;default:0"`
	Version      int64          `json:"version"       gorm:"not null;default:0"`
	RatingSum    int64          `json:"-"             gorm:"not null;default:0"`
	RatingCount  int64          `json:"rating_count"  gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string { return "recipes" }

// AverageRating returns RatingSum/RatingCount, or 0 when no ratings exist.
func (r Recipe) AverageRating() float64 {
	if r.RatingCount == 0 {
		return 0
	}
	return float64(r.RatingSum) / float64(r.RatingCount)
}

// Rating records a single user's score for a recipe. A user holds at most
// one rating per recipe (enforced by unique index); resubmission replaces
// the prior score via the rating service's delta update.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RecipeID / UserID: relation keys, unique as a pair.
//   - Score: integer in [1,5] (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Rating struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	RecipeID  string    `json:"recipe_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_rating_recipe_user"`
	UserID    string    `json:"user_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_rating_recipe_user"`
	Score     int       `json:"score"     gorm:"not null;check:score BETWEEN 1 AND 5"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "ratings" }

// HomepageContent is the single-row editable homepage payload (welcome
// message plus the host portrait). Updated by owner_admin only; every
// accepted update emits a homepage-wide event.
type HomepageContent struct {
	ID             uint      `json:"id"              gorm:"primaryKey"`
	WelcomeMessage string    `json:"welcome_message" gorm:"type:text"`
	ImageRef       string    `json:"image_ref"       gorm:"type:varchar(255)"`
	ImageVersion   int64     `json:"image_version"   gorm:"not null;default:0"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for HomepageContent.
func (HomepageContent) TableName() string { return "homepage_content" }
