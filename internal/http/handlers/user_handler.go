// User and team HTTP handlers.
//
//   - GET    /users/{id}          (public profile)
//   - PATCH  /users/{id}          (edit profile, self or admin)
//   - PUT    /users/{id}/image    (replace profile image)
//   - GET    /team                (public staff listing)
//   - GET    /admin/users         (all accounts, owner_admin)
//   - POST   /admin/users         (provision staff account, owner_admin)
//   - PUT    /admin/users/{id}/role  (assign role, owner_admin)
//   - DELETE /admin/users/{id}    (remove account, owner_admin)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
	"github.com/tbourn/go-recipe-backend/internal/services"
)

// UpdateProfileRequest carries optional profile edits.
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Bio        *string `json:"bio"`
	GithubLink *string `json:"github_link"`
}

// SetRoleRequest assigns a role to an account.
type SetRoleRequest struct {
	Role string `json:"role" binding:"required" example:"moderator"`
}

// CreateTeamMemberRequest provisions a staff account.
type CreateTeamMemberRequest struct {
	Username  string `json:"username" binding:"required" example:"eve"`
	Email     string `json:"email" example:"eve@example.com"`
	Role      string `json:"role" example:"moderator"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Fetch a user profile
// @Tags        Users
// @Produce     json
// @Param       id  path  string  true  "User ID"
// @Success     200  {object} domain.User
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	u, err := h.userSvc.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Edit a user profile
// @Description Users edit their own profile; owner_admins edit any.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "User ID (demo header)"
// @Param       id         path    string  true  "User ID"
// @Param       body       body    handlers.UpdateProfileRequest  true  "Profile edits"
// @Success     200  {object} domain.User
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id} [patch]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.userSvc.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), services.ProfileUpdate{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Bio:        req.Bio,
		GithubLink: req.GithubLink,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// SetProfileImage godoc
// @ID          setProfileImage
// @Summary     Replace a profile image
// @Tags        Users
// @Accept      octet-stream
// @Produce     json
// @Param       X-User-ID  header  string  true  "User ID (demo header)"
// @Param       id         path    string  true  "User ID"
// @Success     200  {object} domain.User
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     503  {object} handlers.ErrorResponse "Image storage unavailable"
// @Router      /users/{id}/image [put]
func (h *Handlers) SetProfileImage(c *gin.Context) {
	data, contentType, okRead := h.readUpload(c)
	if !okRead {
		return
	}
	u, err := h.userSvc.SetImage(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), data, contentType)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// PublicTeam godoc
// @ID          publicTeam
// @Summary     List the team
// @Description Returns moderator and owner_admin profiles for the public team page.
// @Tags        Users
// @Produce     json
// @Success     200  {array} domain.User
// @Router      /team [get]
func (h *Handlers) PublicTeam(c *gin.Context) {
	team, err := h.userSvc.PublicTeam(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, team)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List all accounts
// @Tags        Admin
// @Produce     json
// @Param       X-User-ID    header  string  true "User ID (demo header)"
// @Param       X-User-Role  header  string  true "User role"  example(owner_admin)
// @Success     200  {array}  domain.User
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Router      /admin/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}

// CreateTeamMember godoc
// @ID          createTeamMember
// @Summary     Provision a staff account
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-User-ID    header  string  true "User ID (demo header)"
// @Param       X-User-Role  header  string  true "User role"  example(owner_admin)
// @Param       body         body    handlers.CreateTeamMemberRequest  true  "Account payload"
// @Success     201  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Router      /admin/users [post]
func (h *Handlers) CreateTeamMember(c *gin.Context) {
	var req CreateTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.userSvc.CreateTeamMember(c.Request.Context(), middleware.ActorFrom(c), services.TeamMemberInput{
		Username:  req.Username,
		Email:     req.Email,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// SetUserRole godoc
// @ID          setUserRole
// @Summary     Assign a role
// @Description Sets an account's role. Admins cannot demote their own account.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-User-ID    header  string  true "User ID (demo header)"
// @Param       X-User-Role  header  string  true "User role"  example(owner_admin)
// @Param       id           path    string  true "User ID"
// @Param       body         body    handlers.SetRoleRequest  true  "Role payload"
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     409  {object} handlers.ErrorResponse "Self demotion"
// @Router      /admin/users/{id}/role [put]
func (h *Handlers) SetUserRole(c *gin.Context) {
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.userSvc.SetRole(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Role)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Remove an account
// @Tags        Admin
// @Param       X-User-ID    header  string  true "User ID (demo header)"
// @Param       X-User-Role  header  string  true "User role"  example(owner_admin)
// @Param       id           path    string  true "User ID"
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     409  {object} handlers.ErrorResponse "Self deletion"
// @Router      /admin/users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.userSvc.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
