package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/repo"
)

func TestCreate_MemberStartsPending(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)

	r, err := svc.Create(context.Background(), member("u1"), RecipeInput{Title: "pasta  alla  norma"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", r.Status)
	}
	if r.Version != 1 {
		t.Fatalf("version = %d, want 1", r.Version)
	}
	if r.Title != "Pasta Alla Norma" {
		t.Fatalf("title = %q, want normalized display casing", r.Title)
	}
	ev := bus.last(t)
	if ev.Kind != events.KindCreated || ev.RecipeID != r.ID {
		t.Fatalf("event = %+v, want created for %s", ev, r.ID)
	}
}

func TestCreate_PrivilegedAutoApproved(t *testing.T) {
	svc := newRecipeSvc(newTestDB(t), &capturePublisher{}, nil)

	r, err := svc.Create(context.Background(), moderator("m1"), RecipeInput{Title: "Moussaka"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != domain.StatusApproved {
		t.Fatalf("moderator status = %q, want approved", r.Status)
	}

	svc.AutoApprovePrivileged = false
	r, err = svc.Create(context.Background(), moderator("m1"), RecipeInput{Title: "Gemista"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != domain.StatusPending {
		t.Fatalf("status with auto-approve off = %q, want pending", r.Status)
	}
}

func TestCreate_AnonymousDeniedEmitsNothing(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)

	_, err := svc.Create(context.Background(), member(""), RecipeInput{Title: "x"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if n := len(bus.all()); n != 0 {
		t.Fatalf("published %d events, want 0", n)
	}
}

func TestUpdate_OwnerOnlyForMembers(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, member("author"), RecipeInput{Title: "Briam"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(ctx, member("stranger"), r.ID, RecipeUpdate{Steps: ptr("stolen")})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger edit err = %v, want ErrForbidden", err)
	}

	desc := "oven-baked vegetables"
	got, err := svc.Update(ctx, member("author"), r.ID, RecipeUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	if got.Description != desc {
		t.Fatalf("description = %q, want %q", got.Description, desc)
	}
	if got.Version != r.Version+1 {
		t.Fatalf("version = %d, want %d", got.Version, r.Version+1)
	}
	if ev := bus.last(t); ev.Kind != events.KindUpdated || ev.Version != got.Version {
		t.Fatalf("event = %+v, want updated v%d", ev, got.Version)
	}
}

func TestUpdate_MissingAndDeleted(t *testing.T) {
	svc := newRecipeSvc(newTestDB(t), &capturePublisher{}, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, member("u"), "nope", RecipeUpdate{})
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("missing err = %v, want ErrRecipeNotFound", err)
	}

	r, err := svc.Create(ctx, moderator("m"), RecipeInput{Title: "Fasolada"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, moderator("m"), r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.Update(ctx, moderator("m"), r.ID, RecipeUpdate{})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("raced-delete err = %v, want ErrConflict", err)
	}
}

func TestSetStatus_TransitionsAndReReview(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, member("author"), RecipeInput{Title: "Youvetsi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.SetStatus(ctx, member("author"), r.ID, domain.StatusApproved)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("member self-approve err = %v, want ErrForbidden", err)
	}

	got, err := svc.SetStatus(ctx, moderator("mod"), r.ID, domain.StatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != domain.StatusApproved {
		t.Fatalf("status = %q, want approved", got.Status)
	}
	if ev := bus.last(t); ev.Kind != events.KindStatusChanged {
		t.Fatalf("event kind = %q, want status_changed", ev.Kind)
	}

	// Re-review: approved recipe can still be declined.
	got, err = svc.SetStatus(ctx, ownerAdmin("adm"), r.ID, domain.StatusDeclined)
	if err != nil {
		t.Fatalf("decline after approve: %v", err)
	}
	if got.Status != domain.StatusDeclined {
		t.Fatalf("status = %q, want declined", got.Status)
	}
}

func TestSetStatus_SameStatusIsNoop(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)
	ctx := context.Background()

	r, _ := svc.Create(ctx, moderator("m"), RecipeInput{Title: "Dolmades"})
	before := len(bus.all())

	got, err := svc.SetStatus(ctx, moderator("m"), r.ID, domain.StatusApproved)
	if err != nil {
		t.Fatalf("same-status set: %v", err)
	}
	if got.Version != r.Version {
		t.Fatalf("version bumped to %d on no-op", got.Version)
	}
	if n := len(bus.all()); n != before {
		t.Fatalf("no-op published %d extra events", n-before)
	}
}

func TestSetStatus_InvalidTarget(t *testing.T) {
	svc := newRecipeSvc(newTestDB(t), &capturePublisher{}, nil)
	r, _ := svc.Create(context.Background(), moderator("m"), RecipeInput{Title: "Spanakopita"})

	_, err := svc.SetStatus(context.Background(), moderator("m"), r.ID, "pending")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestToggleSignature_PairRestoresAndIgnoresStatus(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)
	ctx := context.Background()

	r, _ := svc.Create(ctx, member("author"), RecipeInput{Title: "Galaktoboureko"})
	if r.Status != domain.StatusPending {
		t.Fatalf("precondition: status = %q", r.Status)
	}

	// owner_admin may toggle any recipe, even one still pending.
	on, err := svc.ToggleSignature(ctx, ownerAdmin("adm"), r.ID)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !on.IsSignature {
		t.Fatal("expected signature flag set")
	}
	off, err := svc.ToggleSignature(ctx, ownerAdmin("adm"), r.ID)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if off.IsSignature {
		t.Fatal("expected signature flag cleared after second toggle")
	}
	if off.Version != r.Version+2 {
		t.Fatalf("version = %d, want %d", off.Version, r.Version+2)
	}
	if ev := bus.last(t); ev.Kind != events.KindSignatureToggled {
		t.Fatalf("event kind = %q", ev.Kind)
	}
}

func TestSetPhoto_BumpsGenerationAndReplacesBlob(t *testing.T) {
	bus := &capturePublisher{}
	blobs := newMemBlobs()
	svc := newRecipeSvc(newTestDB(t), bus, blobs)
	ctx := context.Background()

	r, _ := svc.Create(ctx, member("author"), RecipeInput{Title: "Pastitsio"})

	first, err := svc.SetPhoto(ctx, member("author"), r.ID, []byte("img-1"), "image/png")
	if err != nil {
		t.Fatalf("set photo: %v", err)
	}
	if first.ImageVersion != 1 || first.ImageRef == "" {
		t.Fatalf("image ref=%q version=%d", first.ImageRef, first.ImageVersion)
	}

	second, err := svc.SetPhoto(ctx, member("author"), r.ID, []byte("img-2"), "image/png")
	if err != nil {
		t.Fatalf("replace photo: %v", err)
	}
	if second.ImageVersion != 2 {
		t.Fatalf("image version = %d, want 2", second.ImageVersion)
	}
	if second.ImageRef == first.ImageRef {
		t.Fatal("expected a new blob reference")
	}
	if blobs.count() != 1 {
		t.Fatalf("blob count = %d, want old blob removed", blobs.count())
	}
	ev := bus.last(t)
	if ev.Kind != events.KindPhotoUpdated {
		t.Fatalf("event kind = %q", ev.Kind)
	}
	snap, ok := ev.Payload.(events.RecipeSnapshot)
	if !ok {
		t.Fatalf("payload type %T", ev.Payload)
	}
	if snap.ImageVersion != 2 {
		t.Fatalf("snapshot image version = %d", snap.ImageVersion)
	}
}

func TestSetPhoto_StoreFailureLeavesRecipeUntouched(t *testing.T) {
	bus := &capturePublisher{}
	blobs := newMemBlobs()
	svc := newRecipeSvc(newTestDB(t), bus, blobs)
	ctx := context.Background()

	r, _ := svc.Create(ctx, member("author"), RecipeInput{Title: "Tzatziki"})
	before := len(bus.all())

	blobs.fail = true
	_, err := svc.SetPhoto(ctx, member("author"), r.ID, []byte("x"), "image/png")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if n := len(bus.all()); n != before {
		t.Fatal("failed photo mutation published an event")
	}

	got, err := svc.Get(ctx, member("author"), r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ImageVersion != 0 || got.Version != r.Version {
		t.Fatalf("recipe mutated on failure: %+v", got)
	}
}

func TestDelete_EmitsFinalSnapshotWithBumpedVersion(t *testing.T) {
	bus := &capturePublisher{}
	svc := newRecipeSvc(newTestDB(t), bus, nil)
	ctx := context.Background()

	r, _ := svc.Create(ctx, member("author"), RecipeInput{Title: "Kleftiko"})
	if err := svc.Delete(ctx, member("author"), r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ev := bus.last(t)
	if ev.Kind != events.KindDeleted {
		t.Fatalf("event kind = %q", ev.Kind)
	}
	if ev.Version != r.Version+1 {
		t.Fatalf("deleted event version = %d, want %d", ev.Version, r.Version+1)
	}

	if err := svc.Delete(ctx, member("author"), r.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("double delete err = %v, want ErrConflict", err)
	}
}

func TestGet_VisibilityRules(t *testing.T) {
	svc := newRecipeSvc(newTestDB(t), &capturePublisher{}, nil)
	ctx := context.Background()

	pending, _ := svc.Create(ctx, member("author"), RecipeInput{Title: "Avgolemono"})

	if _, err := svc.Get(ctx, member("other"), pending.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("stranger sees pending: err = %v", err)
	}
	if _, err := svc.Get(ctx, member("author"), pending.ID); err != nil {
		t.Fatalf("author blocked from own pending recipe: %v", err)
	}
	if _, err := svc.Get(ctx, moderator("mod"), pending.ID); err != nil {
		t.Fatalf("moderator blocked from pending recipe: %v", err)
	}

	if _, err := svc.SetStatus(ctx, moderator("mod"), pending.ID, domain.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Get(ctx, member("other"), pending.ID); err != nil {
		t.Fatalf("approved recipe hidden from member: %v", err)
	}
}

func TestModerationQueue_OrderAndAccess(t *testing.T) {
	db := newTestDB(t)
	svc := newRecipeSvc(db, &capturePublisher{}, nil)
	ctx := context.Background()

	first, _ := svc.Create(ctx, member("a"), RecipeInput{Title: "One"})
	second, _ := svc.Create(ctx, member("b"), RecipeInput{Title: "Two"})

	if _, err := svc.ModerationQueue(ctx, member("a")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member queue err = %v, want ErrForbidden", err)
	}

	q, err := svc.ModerationQueue(ctx, moderator("mod"))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(q) != 2 || q[0].ID != first.ID || q[1].ID != second.ID {
		t.Fatalf("queue order wrong: %v", ids(q))
	}

	// Approved recipes leave the queue.
	if _, err := svc.SetStatus(ctx, moderator("mod"), first.ID, domain.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	q, _ = svc.ModerationQueue(ctx, moderator("mod"))
	if len(q) != 1 || q[0].ID != second.ID {
		t.Fatalf("queue after approval: %v", ids(q))
	}
}

func TestRecipeRows_SurviveReloadWithIngredients(t *testing.T) {
	db := newTestDB(t)
	svc := newRecipeSvc(db, &capturePublisher{}, nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, member("a"), RecipeInput{
		Title:       "Horiatiki",
		Ingredients: []string{"tomato", "feta", "olive oil"},
		Servings:    4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _, err := repo.GetRecipeAny(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Ingredients) != 3 || got.Ingredients[1] != "feta" {
		t.Fatalf("ingredients = %v", got.Ingredients)
	}
}

func TestSearch_RanksVisibleRecipesOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newRecipeSvc(db, &capturePublisher{}, nil)
	ctx := context.Background()
	mod := moderator("mod")

	pastitsio, _ := svc.Create(ctx, mod, RecipeInput{
		Title:       "Pastitsio",
		Ingredients: []string{"pasta", "beef", "cinnamon"},
	})
	stifado, _ := svc.Create(ctx, mod, RecipeInput{
		Title:       "Beef Stifado",
		Ingredients: []string{"beef", "onion"},
	})
	// Pending member recipe: matches the query but is invisible to strangers.
	hidden, _ := svc.Create(ctx, member("a"), RecipeInput{
		Title:       "Secret Beef Pie",
		Ingredients: []string{"beef"},
	})

	got, err := svc.Search(ctx, member("stranger"), "beef pasta", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 visible matches, got %v", ids(got))
	}
	if got[0].ID != pastitsio.ID {
		t.Fatalf("expected pastitsio first (both tokens), got %v", ids(got))
	}
	if got[1].ID != stifado.ID {
		t.Fatalf("expected stifado second, got %v", ids(got))
	}
	for _, r := range got {
		if r.ID == hidden.ID {
			t.Fatalf("pending recipe of another author leaked into search results")
		}
	}

	// The pending recipe is searchable by its own author.
	own, err := svc.Search(ctx, member("a"), "secret pie", 10)
	if err != nil {
		t.Fatalf("author search: %v", err)
	}
	if len(own) == 0 || own[0].ID != hidden.ID {
		t.Fatalf("author should find own pending recipe, got %v", ids(own))
	}

	// Blank queries match nothing.
	if none, _ := svc.Search(ctx, member("stranger"), "   ", 10); len(none) != 0 {
		t.Fatalf("blank query matched %v", ids(none))
	}
}

func ptr[T any](v T) *T { return &v }

func ids(rs []domain.Recipe) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
