// Package services – RecipeService
//
// This file implements RecipeService, which owns the recipe lifecycle:
// creation, edits, deletion, photo replacement, the signature flag, and the
// moderation state machine. Every mutation follows the same shape:
//
//  1. acquire the per-recipe lock (single writer per recipe),
//  2. load the current row and consult the capability resolver,
//  3. apply the change and bump the logical version in one transaction,
//  4. publish exactly one domain event carrying the full updated snapshot.
//
// A denied or failed mutation applies nothing and emits nothing. Status is
// never assigned outside SetStatus; the signature flag is orthogonal to
// status and toggles regardless of it.
//
// Observability: mutating methods are OpenTelemetry-instrumented; spans
// include recipe and actor identifiers.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/authz"
	"github.com/tbourn/go-recipe-backend/internal/blob"
	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/repo"
	"github.com/tbourn/go-recipe-backend/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultSearchLimit is the result cap used when Search is called without
// an explicit limit.
const defaultSearchLimit = 20

// statusTransitionAllowed is the moderation state machine guard. Any state
// is currently reachable from any other via an explicit moderator action
// (re-review included); the hook exists so future policy can restrict the
// graph, surfaced as ErrInvalidTransition.
func statusTransitionAllowed(from, to string) bool {
	_ = from
	_ = to
	return true
}

// RecipeService coordinates recipe persistence, moderation, and event
// emission. All mutators serialize per recipe id through Locks.
type RecipeService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Bus receives one event per accepted mutation. May be nil in tests.
	Bus events.Publisher
	// Blobs stores recipe images and yields opaque references.
	Blobs blob.Store
	// Locks serializes writers per recipe id; share one instance with
	// RatingService.
	Locks *RecipeLocks

	// AutoApprovePrivileged makes recipes authored by moderators and
	// owner_admins start approved instead of pending.
	AutoApprovePrivileged bool

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale drives display casing of stored titles.
	TitleLocale language.Tag
}

// NewRecipeService constructs a RecipeService with sane defaults.
func NewRecipeService(db *gorm.DB, bus events.Publisher, blobs blob.Store, locks *RecipeLocks) *RecipeService {
	return &RecipeService{
		DB:                    db,
		Bus:                   bus,
		Blobs:                 blobs,
		Locks:                 locks,
		AutoApprovePrivileged: true,
		TitleMaxLen:           200,
		TitleLocale:           language.English,
	}
}

// RecipeInput is the payload for creating a recipe.
type RecipeInput struct {
	Title       string
	Description string
	Ingredients []string
	Steps       string
	Servings    int
}

// RecipeUpdate carries optional field changes for an edit; nil fields are
// left untouched. AuthorID is immutable and deliberately absent.
type RecipeUpdate struct {
	Title       *string
	Description *string
	Ingredients *[]string
	Steps       *string
	Servings    *int
}

// Create inserts a new recipe authored by actor. Members start in pending;
// moderator/owner_admin authors start approved when AutoApprovePrivileged
// is set. Emits a created event.
func (s *RecipeService) Create(ctx context.Context, actor authz.Actor, in RecipeInput) (*domain.Recipe, error) {
	ctx, span := s.span(ctx, "Create", "", actor)
	defer span.End()

	if !authz.Resolve(actor, authz.KindRecipe, authz.ActionCreateRecipe, nil) {
		return nil, ErrForbidden
	}
	title := s.normalizeTitle(in.Title)
	if title == "" {
		return nil, ErrValidation
	}
	servings := in.Servings
	if servings <= 0 {
		servings = 2
	}
	status := domain.StatusPending
	if s.AutoApprovePrivileged &&
		(actor.Role == authz.RoleModerator || actor.Role == authz.RoleOwnerAdmin) {
		status = domain.StatusApproved
	}

	r := &domain.Recipe{
		AuthorID:    actor.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Ingredients: in.Ingredients,
		Steps:       in.Steps,
		Servings:    servings,
		Status:      status,
		Version:     1,
	}
	r, err := repo.CreateRecipe(ctx, s.DB, r)
	if err != nil {
		return nil, err
	}
	s.publish(events.KindCreated, r)
	return r, nil
}

// Update edits a recipe's payload fields. Emits an updated event.
func (s *RecipeService) Update(ctx context.Context, actor authz.Actor, id string, in RecipeUpdate) (*domain.Recipe, error) {
	ctx, span := s.span(ctx, "Update", id, actor)
	defer span.End()

	return s.mutate(ctx, actor, id, authz.ActionEditRecipe, events.KindUpdated, func(r *domain.Recipe) error {
		if in.Title != nil {
			t := s.normalizeTitle(*in.Title)
			if t == "" {
				return ErrValidation
			}
			r.Title = t
		}
		if in.Description != nil {
			r.Description = strings.TrimSpace(*in.Description)
		}
		if in.Ingredients != nil {
			r.Ingredients = *in.Ingredients
		}
		if in.Steps != nil {
			r.Steps = *in.Steps
		}
		if in.Servings != nil {
			if *in.Servings <= 0 {
				return ErrValidation
			}
			r.Servings = *in.Servings
		}
		return nil
	})
}

// SetPhoto stores the uploaded image, swaps the recipe's reference, bumps
// the image version, and removes the replaced blob. Emits a photo_updated
// event.
func (s *RecipeService) SetPhoto(ctx context.Context, actor authz.Actor, id string, data []byte, contentType string) (*domain.Recipe, error) {
	ctx, span := s.span(ctx, "SetPhoto", id, actor)
	defer span.End()

	if len(data) == 0 {
		return nil, ErrValidation
	}

	var oldRef string
	var newRef string
	updated, err := s.mutate(ctx, actor, id, authz.ActionChangePhoto, events.KindPhotoUpdated, func(r *domain.Recipe) error {
		// Upload only after the capability check passed, so a denied
		// actor leaves no orphan blob behind.
		ref, perr := s.Blobs.Put(ctx, data, contentType)
		if perr != nil {
			return errors.Join(ErrUnavailable, perr)
		}
		oldRef, newRef = r.ImageRef, ref
		r.ImageRef = ref
		r.ImageVersion++
		return nil
	})
	if err != nil {
		// The row was not updated; discard the uploaded blob if any.
		if newRef != "" {
			_ = s.Blobs.Delete(ctx, newRef)
		}
		return nil, err
	}
	if oldRef != "" {
		_ = s.Blobs.Delete(ctx, oldRef)
	}
	return updated, nil
}

// ToggleSignature flips the signature flag. Toggling is idempotent in
// pairs (two toggles restore the original value), succeeds in any
// moderation status, and emits a signature_toggled event.
func (s *RecipeService) ToggleSignature(ctx context.Context, actor authz.Actor, id string) (*domain.Recipe, error) {
	ctx, span := s.span(ctx, "ToggleSignature", id, actor)
	defer span.End()

	return s.mutate(ctx, actor, id, authz.ActionToggleSignature, events.KindSignatureToggled, func(r *domain.Recipe) error {
		r.IsSignature = !r.IsSignature
		return nil
	})
}

// SetStatus runs the moderation state machine: approve or decline,
// including re-review of an already-moderated recipe. Setting the current
// status again is accepted without a version bump or event. Emits a
// status_changed event on every real transition.
func (s *RecipeService) SetStatus(ctx context.Context, actor authz.Actor, id, status string) (*domain.Recipe, error) {
	ctx, span := s.span(ctx, "SetStatus", id, actor)
	defer span.End()

	if status != domain.StatusApproved && status != domain.StatusDeclined {
		return nil, ErrInvalidStatus
	}

	unlock := s.Locks.Lock(id)
	defer unlock()

	var out *domain.Recipe
	noop := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Resolve(actor, authz.KindRecipe, authz.ActionSetStatus, authz.Owned(r.AuthorID)) {
			return ErrForbidden
		}
		if r.Status == status {
			out, noop = r, true
			return nil
		}
		if !statusTransitionAllowed(r.Status, status) {
			return ErrInvalidTransition
		}
		r.Status = status
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
	if !noop {
		s.publish(events.KindStatusChanged, out)
	}
	return out, nil
}

// Delete removes a recipe. The deleted event carries the final snapshot
// with a version one past the last accepted mutation so that subscribers
// evict even if an earlier update for the same recipe is still in flight
// to them.
func (s *RecipeService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	ctx, span := s.span(ctx, "Delete", id, actor)
	defer span.End()

	unlock := s.Locks.Lock(id)
	defer unlock()

	var snapshot *domain.Recipe
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Resolve(actor, authz.KindRecipe, authz.ActionDeleteRecipe, authz.Owned(r.AuthorID)) {
			return ErrForbidden
		}
		if err := repo.DeleteRecipe(ctx, tx, id); err != nil {
			return err
		}
		r.Version++
		snapshot = r
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(events.KindDeleted, snapshot)
	if snapshot.ImageRef != "" && s.Blobs != nil {
		_ = s.Blobs.Delete(ctx, snapshot.ImageRef)
	}
	return nil
}

// Get returns one recipe under the viewer's visibility rule: approved
// recipes are public; pending and declined ones are visible to their
// author, moderators, and owner_admins only.
func (s *RecipeService) Get(ctx context.Context, actor authz.Actor, id string) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	if r.Status != domain.StatusApproved &&
		r.AuthorID != actor.ID &&
		actor.Role != authz.RoleModerator && actor.Role != authz.RoleOwnerAdmin {
		return nil, ErrRecipeNotFound
	}
	return r, nil
}

// List returns the recipes visible to the viewer, most recent first.
func (s *RecipeService) List(ctx context.Context, actor authz.Actor) ([]domain.Recipe, error) {
	return repo.ListRecipesVisible(ctx, s.DB, actor.ID, string(actor.Role))
}

// ListPage returns one page of visible recipes and the total count.
func (s *RecipeService) ListPage(ctx context.Context, actor authz.Actor, page, pageSize int) ([]domain.Recipe, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return repo.ListRecipesVisiblePage(ctx, s.DB, actor.ID, string(actor.Role), (page-1)*pageSize, pageSize)
}

// Search ranks the actor's visible recipes against a free-text query over
// title, description, ingredients, and steps. The index is rebuilt from the
// current visible set on every call, so results never include recipes the
// actor lost access to. Results come back best match first; an empty or
// token-free query returns no matches.
func (s *RecipeService) Search(ctx context.Context, actor authz.Actor, query string, limit int) ([]domain.Recipe, error) {
	visible, err := repo.ListRecipesVisible(ctx, s.DB, actor.ID, string(actor.Role))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	docs := make([]search.Doc, 0, len(visible))
	byID := make(map[string]domain.Recipe, len(visible))
	for _, r := range visible {
		fields := append([]string{r.Title, r.Description, r.Steps}, r.Ingredients...)
		docs = append(docs, search.ComposeDoc(r.ID, fields...))
		byID[r.ID] = r
	}

	ranked := search.NewIndex(docs).TopK(query, limit)
	out := make([]domain.Recipe, 0, len(ranked))
	for _, res := range ranked {
		if r, ok := byID[res.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListMine returns all of the actor's own recipes in any status.
func (s *RecipeService) ListMine(ctx context.Context, actor authz.Actor) ([]domain.Recipe, error) {
	if actor.Anonymous() {
		return nil, ErrForbidden
	}
	return repo.ListRecipesByAuthor(ctx, s.DB, actor.ID)
}

// ModerationQueue returns pending recipes in submission order, for actors
// holding the set_status capability.
func (s *RecipeService) ModerationQueue(ctx context.Context, actor authz.Actor) ([]domain.Recipe, error) {
	if !authz.Resolve(actor, authz.KindRecipe, authz.ActionSetStatus, authz.Owned("")) {
		return nil, ErrForbidden
	}
	return repo.ListPendingRecipes(ctx, s.DB)
}

// mutate is the shared load → authorize → change → bump → save skeleton
// for single-recipe mutations. change runs inside the transaction with the
// loaded row; any error aborts with nothing written and nothing emitted.
func (s *RecipeService) mutate(ctx context.Context, actor authz.Actor, id string, action authz.Action, kind events.Kind, change func(*domain.Recipe) error) (*domain.Recipe, error) {
	unlock := s.Locks.Lock(id)
	defer unlock()

	var out *domain.Recipe
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Resolve(actor, authz.KindRecipe, action, authz.Owned(r.AuthorID)) {
			return ErrForbidden
		}
		if err := change(r); err != nil {
			return err
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
	s.publish(kind, out)
	return out, nil
}

// load distinguishes a recipe that never existed (not found) from one
// soft-deleted by a concurrent delete (conflict).
func (s *RecipeService) load(ctx context.Context, tx *gorm.DB, id string) (*domain.Recipe, error) {
	r, deleted, err := repo.GetRecipeAny(ctx, tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, ErrConflict
	}
	return r, nil
}

// publish emits one event with the full recipe snapshot.
func (s *RecipeService) publish(kind events.Kind, r *domain.Recipe) {
	if s.Bus == nil || r == nil {
		return
	}
	s.Bus.Publish(events.Event{
		Kind:     kind,
		RecipeID: r.ID,
		Version:  r.Version,
		Payload:  events.SnapshotOf(*r),
	})
}

// normalizeTitle trims whitespace, collapses runs of spaces, applies the
// configured display casing, and clips to the configured rune length.
func (s *RecipeService) normalizeTitle(t string) string {
	t = whitespaceRE.ReplaceAllString(strings.TrimSpace(t), " ")
	if t == "" {
		return ""
	}
	t = cases.Title(s.TitleLocale).String(t)
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(t) > s.TitleMaxLen {
		t = string([]rune(t)[:s.TitleMaxLen])
	}
	return t
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// span starts an OpenTelemetry span for a service method.
func (s *RecipeService) span(ctx context.Context, op, recipeID string, actor authz.Actor) (context.Context, trace.Span) {
	tr := otel.Tracer("services/RecipeService")
	attrs := []attribute.KeyValue{
		attribute.String("actor.id", actor.ID),
		attribute.String("actor.role", string(actor.Role)),
	}
	if recipeID != "" {
		attrs = append(attrs, attribute.String("recipe.id", recipeID))
	}
	return tr.Start(ctx, op, trace.WithAttributes(attrs...))
}
