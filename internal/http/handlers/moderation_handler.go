// Moderation HTTP handlers.
//
//   - GET  /moderation/queue                     (pending recipes, oldest first)
//   - POST /moderation/recipes/{id}/{action}    (approve | decline, re-review included)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
)

// ModerationQueue godoc
// @ID          moderationQueue
// @Summary     List the moderation queue
// @Description Returns pending recipes in submission order. Moderators and owner_admins only.
// @Tags        Moderation
// @Produce     json
//
// @Param       X-User-ID    header  string  true "User ID (demo header)"  example(mod1)
// @Param       X-User-Role  header  string  true "User role"              example(moderator)
//
// @Success     200  {array}  domain.Recipe
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Router      /moderation/queue [get]
func (h *Handlers) ModerationQueue(c *gin.Context) {
	items, err := h.recipeSvc.ModerationQueue(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// ModerateRecipe godoc
// @ID          moderateRecipe
// @Summary     Approve or decline a recipe
// @Description Runs the moderation state machine. Approving or declining an already-moderated recipe re-reviews it. Setting the current status again is a no-op.
// @Tags        Moderation
// @Produce     json
//
// @Param       X-User-ID    header  string  true "User ID (demo header)"   example(mod1)
// @Param       X-User-Role  header  string  true "User role"               example(moderator)
// @Param       id           path    string  true "Recipe ID (UUID)"        format(uuid)
// @Param       action       path    string  true "approve or decline"      Enums(approve, decline)
//
// @Success     200  {object} domain.Recipe
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     409  {object} handlers.ErrorResponse "Deleted concurrently"
// @Router      /moderation/recipes/{id}/{action} [post]
func (h *Handlers) ModerateRecipe(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	status, okAction := statusFromPath(c.Param("action"))
	if !okAction {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action must be approve or decline")
		return
	}
	r, err := h.recipeSvc.SetStatus(c.Request.Context(), middleware.ActorFrom(c), id, status)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}
