// Homepage HTTP handlers.
//
//   - GET /homepage        (public landing page aggregate)
//   - PUT /homepage        (edit welcome message, owner_admin)
//   - PUT /homepage/image  (replace hero image, owner_admin)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
)

// UpdateHomepageRequest edits the landing page content block.
type UpdateHomepageRequest struct {
	WelcomeMessage string `json:"welcome_message" binding:"required" example:"Welcome to the kitchen"`
}

// GetHomepage godoc
// @ID          getHomepage
// @Summary     Fetch the landing page aggregate
// @Description Returns the editable content block plus the hall of fame, signature picks, and recent approvals.
// @Tags        Homepage
// @Produce     json
// @Success     200  {object} services.HomepageData
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /homepage [get]
func (h *Handlers) GetHomepage(c *gin.Context) {
	data, err := h.homeSvc.Data(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, data)
}

// UpdateHomepage godoc
// @ID          updateHomepage
// @Summary     Edit the landing page content
// @Tags        Homepage
// @Accept      json
// @Produce     json
// @Param       X-User-ID    header  string  true "User ID (demo header)"
// @Param       X-User-Role  header  string  true "User role"  example(owner_admin)
// @Param       body         body    handlers.UpdateHomepageRequest  true  "Content payload"
// @Success     200  {object} domain.HomepageContent
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Router      /homepage [put]
func (h *Handlers) UpdateHomepage(c *gin.Context) {
	var req UpdateHomepageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	content, err := h.homeSvc.Update(c.Request.Context(), middleware.ActorFrom(c), req.WelcomeMessage)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, content)
}

// SetHomepageImage godoc
// @ID          setHomepageImage
// @Summary     Replace the landing page hero image
// @Tags        Homepage
// @Accept      octet-stream
// @Produce     json
// @Param       X-User-ID    header  string  true "User ID (demo header)"
// @Param       X-User-Role  header  string  true "User role"  example(owner_admin)
// @Success     200  {object} domain.HomepageContent
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     503  {object} handlers.ErrorResponse "Image storage unavailable"
// @Router      /homepage/image [put]
func (h *Handlers) SetHomepageImage(c *gin.Context) {
	data, contentType, okRead := h.readUpload(c)
	if !okRead {
		return
	}
	content, err := h.homeSvc.SetImage(c.Request.Context(), middleware.ActorFrom(c), data, contentType)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, content)
}
