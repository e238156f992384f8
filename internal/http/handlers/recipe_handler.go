// Recipe HTTP handlers.
//
// This file exposes REST endpoints for recipe resources:
//   - POST   /recipes                  (create)
//   - GET    /recipes                  (list, paginated, ETag support)
//   - GET    /recipes/{id}            (fetch one, visibility-checked)
//   - PATCH  /recipes/{id}            (edit payload fields)
//   - DELETE /recipes/{id}            (delete)
//   - PUT    /recipes/{id}/photo      (replace image)
//   - POST   /recipes/{id}/signature  (toggle signature flag)
//   - GET    /recipes/mine            (own recipes, any status)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Capability decisions live in the
// service layer; handlers never inspect roles themselves.
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/authz"
	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
	"github.com/tbourn/go-recipe-backend/internal/repo"
	"github.com/tbourn/go-recipe-backend/internal/services"
	"github.com/tbourn/go-recipe-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RecipeService defines recipe lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RecipeService interface {
	Create(ctx context.Context, actor authz.Actor, in services.RecipeInput) (*domain.Recipe, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*domain.Recipe, error)
	ListPage(ctx context.Context, actor authz.Actor, page, pageSize int) ([]domain.Recipe, int64, error)
	Search(ctx context.Context, actor authz.Actor, query string, limit int) ([]domain.Recipe, error)
	ListMine(ctx context.Context, actor authz.Actor) ([]domain.Recipe, error)
	Update(ctx context.Context, actor authz.Actor, id string, in services.RecipeUpdate) (*domain.Recipe, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	SetPhoto(ctx context.Context, actor authz.Actor, id string, data []byte, contentType string) (*domain.Recipe, error)
	ToggleSignature(ctx context.Context, actor authz.Actor, id string) (*domain.Recipe, error)
	SetStatus(ctx context.Context, actor authz.Actor, id, status string) (*domain.Recipe, error)
	ModerationQueue(ctx context.Context, actor authz.Actor) ([]domain.Recipe, error)
}

// RatingService defines rating submission operations.
type RatingService interface {
	Submit(ctx context.Context, actor authz.Actor, recipeID string, score int, idemKey string) (*domain.Recipe, error)
	Mine(ctx context.Context, actor authz.Actor, recipeID string) (*domain.Rating, error)
}

// UserService defines profile and account administration operations.
type UserService interface {
	Profile(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, id string, in services.ProfileUpdate) (*domain.User, error)
	SetImage(ctx context.Context, actor authz.Actor, id string, data []byte, contentType string) (*domain.User, error)
	List(ctx context.Context, actor authz.Actor) ([]domain.User, error)
	SetRole(ctx context.Context, actor authz.Actor, id, role string) (*domain.User, error)
	CreateTeamMember(ctx context.Context, actor authz.Actor, in services.TeamMemberInput) (*domain.User, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	PublicTeam(ctx context.Context) ([]domain.User, error)
}

// HomepageService defines landing page operations.
type HomepageService interface {
	Data(ctx context.Context) (*services.HomepageData, error)
	Update(ctx context.Context, actor authz.Actor, welcome string) (*domain.HomepageContent, error)
	SetImage(ctx context.Context, actor authz.Actor, data []byte, contentType string) (*domain.HomepageContent, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for recipes, ratings, users, and the
// homepage. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	recipeSvc RecipeService
	ratingSvc RatingService
	userSvc   UserService
	homeSvc   HomepageService

	// MaxUploadBytes caps accepted image uploads. Zero means 5 MiB.
	MaxUploadBytes int64
}

// New constructs and returns a Handlers instance bound to the given services.
func New(recipeSvc RecipeService, ratingSvc RatingService, userSvc UserService, homeSvc HomepageService) *Handlers {
	return &Handlers{
		recipeSvc: recipeSvc,
		ratingSvc: ratingSvc,
		userSvc:   userSvc,
		homeSvc:   homeSvc,
	}
}

//
// DTOs
//

// CreateRecipeRequest is the JSON payload for creating a recipe.
type CreateRecipeRequest struct {
	Title       string   `json:"title" binding:"required" example:"Pastitsio"`
	Description string   `json:"description" example:"Baked pasta with spiced beef"`
	Ingredients []string `json:"ingredients"`
	Steps       string   `json:"steps"`
	Servings    int      `json:"servings" example:"4"`
}

// UpdateRecipeRequest carries optional field edits; absent fields are left
// untouched.
type UpdateRecipeRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Ingredients *[]string `json:"ingredients"`
	Steps       *string   `json:"steps"`
	Servings    *int      `json:"servings"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRecipesResponse wraps a page of recipes and pagination information.
type ListRecipesResponse struct {
	Recipes    []domain.Recipe `json:"recipes"`
	Pagination Pagination      `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// readUpload reads the request body as a raw image upload, honoring the
// configured size cap. PUT photo endpoints take bare bytes with a
// Content-Type header rather than multipart forms.
func (h *Handlers) readUpload(c *gin.Context) ([]byte, string, bool) {
	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read upload")
		return nil, "", false
	}
	if int64(len(data)) > maxBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "upload exceeds size limit")
		return nil, "", false
	}
	if len(data) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "empty upload")
		return nil, "", false
	}
	return data, c.ContentType(), true
}

// recipeID validates the :id path parameter.
func recipeID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipe id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// CreateRecipe godoc
// @ID          createRecipe
// @Summary     Create a new recipe
// @Description Creates a recipe authored by the current user. Member recipes start pending moderation.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  true  "User ID (demo header)"  example(user123)
// @Param       X-User-Role  header  string  false "User role"              example(member)
// @Param       body         body    handlers.CreateRecipeRequest  true  "Create recipe payload"
//
// @Success     201  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes [post]
func (h *Handlers) CreateRecipe(c *gin.Context) {
	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	r, err := h.recipeSvc.Create(c.Request.Context(), middleware.ActorFrom(c), services.RecipeInput{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		Servings:    req.Servings,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes (paginated)
// @Description Returns a page of recipes visible to the caller. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Recipes
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       q              query   string  false "Free-text search over title, ingredients, and steps"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRecipesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.ActorFrom(c)
	page, pageSize := clampPagination(c)

	// Free-text search bypasses pagination and ETag caching; ranked results
	// change with every catalog mutation.
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		items, err := h.recipeSvc.Search(ctx, actor, q, pageSize)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
			return
		}
		resp := ListRecipesResponse{
			Recipes: items,
			Pagination: Pagination{
				Page:     1,
				PageSize: pageSize,
				Total:    int64(len(items)),
			},
		}
		if len(items) > 0 {
			resp.Pagination.TotalPages = 1
		}
		ok(c, http.StatusOK, resp)
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okCast := h.recipeSvc.(*services.RecipeService); okCast {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.RecipesStats(ctx, db, actor.ID, string(actor.Role))
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"recipes:%s:%d:%d"`, actor.ID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.recipeSvc.ListPage(ctx, actor, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListRecipesResponse{
		Recipes: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Fetch one recipe
// @Description Returns a recipe if visible to the caller. Pending and declined recipes are visible to their author and staff only.
// @Tags        Recipes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
//
// @Success     200  {object} domain.Recipe
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Router      /recipes/{id} [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	r, err := h.recipeSvc.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// MyRecipes godoc
// @ID          myRecipes
// @Summary     List own recipes
// @Description Returns all of the caller's recipes in any moderation status.
// @Tags        Recipes
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo header)"  example(user123)
//
// @Success     200  {array}  domain.Recipe
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Router      /recipes/mine [get]
func (h *Handlers) MyRecipes(c *gin.Context) {
	items, err := h.recipeSvc.ListMine(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// UpdateRecipe godoc
// @ID          updateRecipe
// @Summary     Edit a recipe
// @Description Applies partial edits to a recipe's payload fields. Authors edit their own; staff edit any.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
// @Param       body       body    handlers.UpdateRecipeRequest  true  "Field edits"
//
// @Success     200  {object} domain.Recipe
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     409  {object} handlers.ErrorResponse "Deleted concurrently"
// @Router      /recipes/{id} [patch]
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	var req UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	r, err := h.recipeSvc.Update(c.Request.Context(), middleware.ActorFrom(c), id, services.RecipeUpdate{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		Servings:    req.Servings,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Description Removes a recipe. Authors delete their own; owner_admins delete any.
// @Tags        Recipes
//
// @Param       X-User-ID  header  string  true  "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     409  {object} handlers.ErrorResponse "Deleted concurrently"
// @Router      /recipes/{id} [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	if err := h.recipeSvc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// SetRecipePhoto godoc
// @ID          setRecipePhoto
// @Summary     Replace a recipe's photo
// @Description Stores the request body as the recipe image and bumps the image version for cache busting.
// @Tags        Recipes
// @Accept      octet-stream
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
//
// @Success     200  {object} domain.Recipe
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     503  {object} handlers.ErrorResponse "Image storage unavailable"
// @Router      /recipes/{id}/photo [put]
func (h *Handlers) SetRecipePhoto(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	data, contentType, okRead := h.readUpload(c)
	if !okRead {
		return
	}
	r, err := h.recipeSvc.SetPhoto(c.Request.Context(), middleware.ActorFrom(c), id, data, contentType)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ToggleSignature godoc
// @ID          toggleSignature
// @Summary     Toggle the signature flag
// @Description Flips the recipe's signature marker. Works in any moderation status.
// @Tags        Recipes
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Recipe ID (UUID)"       format(uuid)
//
// @Success     200  {object} domain.Recipe
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Router      /recipes/{id}/signature [post]
func (h *Handlers) ToggleSignature(c *gin.Context) {
	id, okID := recipeID(c)
	if !okID {
		return
	}
	r, err := h.recipeSvc.ToggleSignature(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// statusFromPath maps the moderation action path segment to a target status.
func statusFromPath(action string) (string, bool) {
	switch strings.ToLower(action) {
	case "approve":
		return domain.StatusApproved, true
	case "decline":
		return domain.StatusDeclined, true
	}
	return "", false
}
