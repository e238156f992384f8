package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/authz"
	"github.com/tbourn/go-recipe-backend/internal/blob"
	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/repo"
)

// UserService owns profiles, profile images, and account administration.
// Role changes and account management require the manage_users capability;
// everyone may edit their own profile.
type UserService struct {
	DB    *gorm.DB
	Bus   events.Publisher
	Blobs blob.Store
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, bus events.Publisher, blobs blob.Store) *UserService {
	return &UserService{DB: db, Bus: bus, Blobs: blobs}
}

// ProfileUpdate carries optional profile field changes; nil fields are
// left untouched.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Bio        *string
	GithubLink *string
}

// Profile returns a user by id.
func (s *UserService) Profile(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// UpdateProfile edits the actor's own profile (or any profile when the
// actor holds manage_users). Emits a profile_updated event.
func (s *UserService) UpdateProfile(ctx context.Context, actor authz.Actor, id string, in ProfileUpdate) (*domain.User, error) {
	if !s.canEdit(actor, id) {
		return nil, ErrForbidden
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.GithubLink != nil {
		u.GithubLink = strings.TrimSpace(*in.GithubLink)
	}
	if err := repo.SaveUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	s.publish(u)
	return u, nil
}

// SetImage replaces the user's profile image and bumps its image version.
// Emits a profile_updated event.
func (s *UserService) SetImage(ctx context.Context, actor authz.Actor, id string, data []byte, contentType string) (*domain.User, error) {
	if !s.canEdit(actor, id) {
		return nil, ErrForbidden
	}
	if len(data) == 0 {
		return nil, ErrValidation
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	ref, err := s.Blobs.Put(ctx, data, contentType)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	old := u.ImageRef
	u.ImageRef = ref
	u.ImageVersion++
	if err := repo.SaveUser(ctx, s.DB, u); err != nil {
		_ = s.Blobs.Delete(ctx, ref)
		return nil, err
	}
	if old != "" {
		_ = s.Blobs.Delete(ctx, old)
	}
	s.publish(u)
	return u, nil
}

// List returns all users, for actors holding manage_users.
func (s *UserService) List(ctx context.Context, actor authz.Actor) ([]domain.User, error) {
	if !authz.Resolve(actor, authz.KindUser, authz.ActionManageUsers, nil) {
		return nil, ErrForbidden
	}
	return repo.ListUsers(ctx, s.DB)
}

// SetRole assigns a user's role. Only owner_admins hold manage_users, and
// an admin cannot demote themself, so at least one owner_admin always
// remains.
func (s *UserService) SetRole(ctx context.Context, actor authz.Actor, id string, role string) (*domain.User, error) {
	if !authz.Resolve(actor, authz.KindUser, authz.ActionManageUsers, nil) {
		return nil, ErrForbidden
	}
	switch role {
	case domain.RoleMember, domain.RoleModerator, domain.RoleOwnerAdmin:
	default:
		return nil, ErrValidation
	}
	if actor.ID == id && role != domain.RoleOwnerAdmin {
		return nil, ErrSelfDelete
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := repo.SaveUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	s.publish(u)
	return u, nil
}

// TeamMemberInput is the payload for creating a staff account.
type TeamMemberInput struct {
	Username  string
	Email     string
	Role      string
	FirstName string
	LastName  string
	Bio       string
}

// CreateTeamMember provisions a staff account, for actors holding
// manage_users.
func (s *UserService) CreateTeamMember(ctx context.Context, actor authz.Actor, in TeamMemberInput) (*domain.User, error) {
	if !authz.Resolve(actor, authz.KindUser, authz.ActionManageUsers, nil) {
		return nil, ErrForbidden
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrValidation
	}
	role := in.Role
	if role == "" {
		role = domain.RoleMember
	}
	switch role {
	case domain.RoleMember, domain.RoleModerator, domain.RoleOwnerAdmin:
	default:
		return nil, ErrValidation
	}
	u := &domain.User{
		Username:  username,
		Email:     strings.TrimSpace(in.Email),
		Role:      role,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Bio:       in.Bio,
	}
	return repo.CreateUser(ctx, s.DB, u)
}

// Delete removes an account, for actors holding manage_users. Admins
// cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if !authz.Resolve(actor, authz.KindUser, authz.ActionManageUsers, nil) {
		return ErrForbidden
	}
	if actor.ID == id {
		return ErrSelfDelete
	}
	err := repo.DeleteUser(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

// PublicTeam returns moderator and owner_admin profiles for the public
// team page.
func (s *UserService) PublicTeam(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsersByRole(ctx, s.DB, domain.RoleModerator, domain.RoleOwnerAdmin)
}

func (s *UserService) canEdit(actor authz.Actor, id string) bool {
	if actor.ID == id && !actor.Anonymous() {
		return true
	}
	return authz.Resolve(actor, authz.KindUser, authz.ActionManageUsers, authz.Owned(id))
}

func (s *UserService) publish(u *domain.User) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.Event{
		Kind:    events.KindProfileUpdated,
		Payload: events.ProfileOf(*u),
	})
}
