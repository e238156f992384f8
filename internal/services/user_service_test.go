package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/repo"
)

func seedUser(t *testing.T, db *gorm.DB, username, role string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, &domain.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func TestUpdateProfile_SelfAndAdmin(t *testing.T) {
	db := newTestDB(t)
	bus := &capturePublisher{}
	svc := NewUserService(db, bus, newMemBlobs())
	ctx := context.Background()

	u := seedUser(t, db, "alice", domain.RoleMember)
	stranger := seedUser(t, db, "bob", domain.RoleMember)

	_, err := svc.UpdateProfile(ctx, member(stranger.ID), u.ID, ProfileUpdate{Bio: ptr("hax")})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger edit err = %v, want ErrForbidden", err)
	}

	got, err := svc.UpdateProfile(ctx, member(u.ID), u.ID, ProfileUpdate{
		FirstName: ptr("  Alice "),
		Bio:       ptr("home cook"),
	})
	if err != nil {
		t.Fatalf("self edit: %v", err)
	}
	if got.FirstName != "Alice" || got.Bio != "home cook" {
		t.Fatalf("profile = %+v", got)
	}
	if ev := bus.last(t); ev.Kind != events.KindProfileUpdated {
		t.Fatalf("event kind = %q", ev.Kind)
	}

	// owner_admin can edit anyone's profile.
	if _, err := svc.UpdateProfile(ctx, ownerAdmin("adm"), u.ID, ProfileUpdate{LastName: ptr("Smith")}); err != nil {
		t.Fatalf("admin edit: %v", err)
	}
}

func TestSetImage_BumpsVersionAndPublishes(t *testing.T) {
	db := newTestDB(t)
	bus := &capturePublisher{}
	blobs := newMemBlobs()
	svc := NewUserService(db, bus, blobs)
	ctx := context.Background()

	u := seedUser(t, db, "carol", domain.RoleMember)

	one, err := svc.SetImage(ctx, member(u.ID), u.ID, []byte("pic-1"), "image/jpeg")
	if err != nil {
		t.Fatalf("set image: %v", err)
	}
	two, err := svc.SetImage(ctx, member(u.ID), u.ID, []byte("pic-2"), "image/jpeg")
	if err != nil {
		t.Fatalf("replace image: %v", err)
	}
	if two.ImageVersion != one.ImageVersion+1 {
		t.Fatalf("image version = %d, want %d", two.ImageVersion, one.ImageVersion+1)
	}
	if blobs.count() != 1 {
		t.Fatalf("blob count = %d, want old image removed", blobs.count())
	}

	ev := bus.last(t)
	snap, ok := ev.Payload.(events.ProfileSnapshot)
	if !ok {
		t.Fatalf("payload type %T", ev.Payload)
	}
	if snap.ImageVersion != two.ImageVersion {
		t.Fatalf("snapshot image version = %d", snap.ImageVersion)
	}
	raw, _ := json.Marshal(snap)
	if strings.Contains(string(raw), "deleted_at") {
		t.Fatalf("profile event carries persistence internals: %s", raw)
	}
}

func TestSetRole_GuardsLastAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, &capturePublisher{}, newMemBlobs())
	ctx := context.Background()

	adm := seedUser(t, db, "root", domain.RoleOwnerAdmin)
	u := seedUser(t, db, "dave", domain.RoleMember)

	if _, err := svc.SetRole(ctx, moderator("mod"), u.ID, domain.RoleModerator); !errors.Is(err, ErrForbidden) {
		t.Fatalf("moderator setting roles err = %v, want ErrForbidden", err)
	}

	got, err := svc.SetRole(ctx, ownerAdmin(adm.ID), u.ID, domain.RoleModerator)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if got.Role != domain.RoleModerator {
		t.Fatalf("role = %q", got.Role)
	}

	if _, err := svc.SetRole(ctx, ownerAdmin(adm.ID), adm.ID, domain.RoleMember); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("self-demote err = %v, want ErrSelfDelete", err)
	}
	if _, err := svc.SetRole(ctx, ownerAdmin(adm.ID), u.ID, "supreme_leader"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad role err = %v, want ErrValidation", err)
	}
}

func TestCreateTeamMemberAndPublicTeam(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, &capturePublisher{}, newMemBlobs())
	ctx := context.Background()

	if _, err := svc.CreateTeamMember(ctx, member("u"), TeamMemberInput{Username: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member create err = %v, want ErrForbidden", err)
	}

	seedUser(t, db, "just-a-member", domain.RoleMember)
	mod, err := svc.CreateTeamMember(ctx, ownerAdmin("adm"), TeamMemberInput{
		Username: "eve", Role: domain.RoleModerator, FirstName: "Eve",
	})
	if err != nil {
		t.Fatalf("create team member: %v", err)
	}
	if mod.Role != domain.RoleModerator {
		t.Fatalf("role = %q", mod.Role)
	}

	team, err := svc.PublicTeam(ctx)
	if err != nil {
		t.Fatalf("public team: %v", err)
	}
	if len(team) != 1 || team[0].ID != mod.ID {
		t.Fatalf("team = %+v", team)
	}
}

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, &capturePublisher{}, newMemBlobs())
	ctx := context.Background()

	adm := seedUser(t, db, "root", domain.RoleOwnerAdmin)
	u := seedUser(t, db, "gone", domain.RoleMember)

	if err := svc.Delete(ctx, ownerAdmin(adm.ID), adm.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("self delete err = %v, want ErrSelfDelete", err)
	}
	if err := svc.Delete(ctx, ownerAdmin(adm.ID), u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Profile(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("profile after delete err = %v, want ErrUserNotFound", err)
	}
	if err := svc.Delete(ctx, ownerAdmin(adm.ID), u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("double delete err = %v, want ErrUserNotFound", err)
	}
}
