// Package authz implements the capability resolver: a pure, table-driven
// mapping from (actor, resource kind, action) to an allow/deny decision.
//
// The resolver replaces per-call-site role conditionals with one declarative
// table so that authorization rules live in exactly one place. Ownership is
// evaluated against the resource at call time — never cached — because both
// ownership and role can change between actions within a session. Callers
// must consult the resolver per action, before applying any part of a
// mutation.
package authz

// Role is an actor's authorization role.
type Role string

// Supported roles.
const (
	RoleMember     Role = "member"
	RoleModerator  Role = "moderator"
	RoleOwnerAdmin Role = "owner_admin"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleModerator, RoleOwnerAdmin:
		return true
	}
	return false
}

// Actor is an authenticated identity with a role, as yielded by the external
// authentication collaborator. A zero Actor (empty ID) is anonymous and is
// denied every action.
type Actor struct {
	ID   string
	Role Role
}

// Anonymous reports whether the actor carries no authenticated identity.
func (a Actor) Anonymous() bool { return a.ID == "" }

// ResourceKind names the class of resource an action targets.
type ResourceKind string

// Resource kinds known to the resolver.
const (
	KindRecipe   ResourceKind = "recipe"
	KindUser     ResourceKind = "user"
	KindHomepage ResourceKind = "homepage"
)

// Action names an operation an actor may attempt on a resource.
type Action string

// Actions known to the resolver.
const (
	ActionCreateRecipe    Action = "create_recipe"
	ActionEditRecipe      Action = "edit_recipe"
	ActionDeleteRecipe    Action = "delete_recipe"
	ActionChangePhoto     Action = "change_photo"
	ActionToggleSignature Action = "toggle_signature"
	ActionSetStatus       Action = "set_status"
	ActionManageUsers     Action = "manage_users"
	ActionEditHomepage    Action = "edit_homepage"
)

// Resource exposes the owner identity of a concrete resource instance.
// Actions that do not target an instance (e.g. create) pass a nil resource.
type Resource interface {
	OwnerID() string
}

// Owned adapts a bare owner id to the Resource interface.
type Owned string

// OwnerID returns the wrapped owner id.
func (o Owned) OwnerID() string { return string(o) }

// grant is one cell of the capability table.
type grant uint8

const (
	deny      grant = iota // never allowed
	allow                  // allowed regardless of ownership
	ownerOnly              // allowed only when resource.OwnerID() == actor.ID
)

// rule holds the per-role grants for one (kind, action) pair.
type rule struct {
	member, moderator, ownerAdmin grant
}

// capabilities is the full authorization matrix. Entries absent from the
// table deny by default, so new actions are closed until explicitly granted.
var capabilities = map[ResourceKind]map[Action]rule{
	KindRecipe: {
		ActionCreateRecipe:    {member: allow, moderator: allow, ownerAdmin: allow},
		ActionEditRecipe:      {member: ownerOnly, moderator: allow, ownerAdmin: allow},
		ActionDeleteRecipe:    {member: ownerOnly, moderator: allow, ownerAdmin: allow},
		ActionChangePhoto:     {member: ownerOnly, moderator: allow, ownerAdmin: allow},
		ActionToggleSignature: {member: ownerOnly, moderator: ownerOnly, ownerAdmin: allow},
		ActionSetStatus:       {member: deny, moderator: allow, ownerAdmin: allow},
	},
	KindUser: {
		ActionManageUsers: {member: deny, moderator: deny, ownerAdmin: allow},
	},
	KindHomepage: {
		ActionEditHomepage: {member: deny, moderator: deny, ownerAdmin: allow},
	},
}

// Resolve returns true when actor may perform action on a resource of the
// given kind. It is pure and side-effect free: the decision depends only on
// the arguments. resource may be nil for actions without a target instance;
// ownership-gated actions deny when the resource is nil.
func Resolve(actor Actor, kind ResourceKind, action Action, resource Resource) bool {
	if actor.Anonymous() || !actor.Role.Valid() {
		return false
	}
	actions, ok := capabilities[kind]
	if !ok {
		return false
	}
	r, ok := actions[action]
	if !ok {
		return false
	}

	var g grant
	switch actor.Role {
	case RoleMember:
		g = r.member
	case RoleModerator:
		g = r.moderator
	case RoleOwnerAdmin:
		g = r.ownerAdmin
	}

	switch g {
	case allow:
		return true
	case ownerOnly:
		return resource != nil && resource.OwnerID() == actor.ID
	default:
		return false
	}
}
