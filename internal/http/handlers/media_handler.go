// Media serving.
//
// GET /media/{ref} serves stored image blobs. URLs carry a ?g=<generation>
// query produced from the owning row's image version; because every photo
// replacement bumps that version, a new URL is minted for each image and
// responses can be cached immutably.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/blob"
)

// MediaHandler serves uploaded images from the blob store.
type MediaHandler struct {
	Blobs blob.Store
}

// Serve godoc
// @ID          serveMedia
// @Summary     Fetch a stored image
// @Description Serves an uploaded image by its opaque reference. The g query parameter is a cache-busting generation and does not affect the bytes served.
// @Tags        Media
// @Produce     octet-stream
// @Param       ref  path   string  true  "Blob reference"
// @Param       g    query  int     false "Image generation (cache busting)"
// @Success     200  {string} string "image bytes"
// @Failure     404  {object} handlers.ErrorResponse "Unknown reference"
// @Router      /media/{ref} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	data, contentType, err := h.Blobs.Open(c.Request.Context(), c.Param("ref"))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "image not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not read image")
		return
	}
	// Generation-versioned URLs never change content, so cache hard.
	if c.Query("g") != "" {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
	}
	c.Data(http.StatusOK, contentType, data)
}
