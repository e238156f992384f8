// Rating HTTP handlers.
//
//   - POST /recipes/{id}/rating  (submit or replace own rating, idempotent)
//   - GET  /recipes/{id}/rating  (fetch own rating)
//
// POST supports the Idempotency-Key header; a replayed request returns the
// recipe's current aggregate without re-applying the score.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
)

// SubmitRatingRequest is the JSON payload for rating a recipe.
type SubmitRatingRequest struct {
	// Score is the star rating, 1 through 5.
	Score int `json:"score" binding:"required" example:"4"`
}

// SubmitRating godoc
// @ID          submitRating
// @Summary     Rate a recipe
// @Description Records or replaces the caller's rating for an approved recipe and returns the recipe with its updated aggregate.
// @Tags        Ratings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "User ID (demo header)"   example(user123)
// @Param       Idempotency-Key  header  string  false "Dedupe key for retries"
// @Param       id               path    string  true  "Recipe ID (UUID)"        format(uuid)
// @Param       body             body    handlers.SubmitRatingRequest  true  "Rating payload"
//
// @Success     200  {object} domain.Recipe
// @Failure     400  {object} handlers.ErrorResponse "Invalid score"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     409  {object} handlers.ErrorResponse "Deleted concurrently"
// @Router      /recipes/{id}/rating [post]
func (h *Handlers) SubmitRating(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	actor := middleware.ActorFrom(c)

	// A detected replay serves the current state without re-applying.
	if middleware.IsReplay(c) {
		r, err := h.recipeSvc.Get(c.Request.Context(), actor, id)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, http.StatusOK, r)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	r, err := h.ratingSvc.Submit(c.Request.Context(), actor, id, req.Score, key)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// MyRating godoc
// @ID          myRating
// @Summary     Fetch own rating
// @Description Returns the caller's rating for a recipe, if any.
// @Tags        Ratings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
//
// @Success     200  {object} domain.Rating
// @Failure     404  {object} handlers.ErrorResponse "No rating"
// @Router      /recipes/{id}/rating [get]
func (h *Handlers) MyRating(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	rt, err := h.ratingSvc.Mine(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rt)
}
