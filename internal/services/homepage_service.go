package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/authz"
	"github.com/tbourn/go-recipe-backend/internal/blob"
	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/repo"
)

// Homepage section limits.
const (
	topRatedLimit  = 3
	signatureLimit = 6
	recentLimit    = 6
)

// HomepageService assembles the public landing page aggregate and lets
// owner_admins edit the editable content block.
type HomepageService struct {
	DB    *gorm.DB
	Bus   events.Publisher
	Blobs blob.Store
}

// NewHomepageService constructs a HomepageService.
func NewHomepageService(db *gorm.DB, bus events.Publisher, blobs blob.Store) *HomepageService {
	return &HomepageService{DB: db, Bus: bus, Blobs: blobs}
}

// HomepageData is the aggregate served to the landing page. Recipe
// sections contain approved recipes only.
type HomepageData struct {
	Content    events.HomepageSnapshot `json:"content"`
	HallOfFame []domain.Recipe         `json:"hall_of_fame"`
	Signatures []domain.Recipe         `json:"signatures"`
	Recent     []domain.Recipe         `json:"recent"`
}

// Data builds the landing page aggregate: the editable content block, the
// top rated recipes, the signature picks, and the most recent approvals.
func (s *HomepageService) Data(ctx context.Context) (*HomepageData, error) {
	content, err := repo.GetOrCreateHomepage(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	top, err := repo.TopRatedRecipes(ctx, s.DB, topRatedLimit)
	if err != nil {
		return nil, err
	}
	sigs, err := repo.SignatureRecipes(ctx, s.DB, signatureLimit)
	if err != nil {
		return nil, err
	}
	recent, err := repo.RecentRecipes(ctx, s.DB, recentLimit)
	if err != nil {
		return nil, err
	}
	return &HomepageData{
		Content:    events.HomepageOf(*content),
		HallOfFame: top,
		Signatures: sigs,
		Recent:     recent,
	}, nil
}

// Update edits the welcome message, for actors holding edit_homepage.
// Emits a homepage_updated event.
func (s *HomepageService) Update(ctx context.Context, actor authz.Actor, welcome string) (*domain.HomepageContent, error) {
	if !authz.Resolve(actor, authz.KindHomepage, authz.ActionEditHomepage, nil) {
		return nil, ErrForbidden
	}
	welcome = strings.TrimSpace(welcome)
	if welcome == "" {
		return nil, ErrValidation
	}
	h, err := repo.GetOrCreateHomepage(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	h.WelcomeMessage = welcome
	if err := repo.SaveHomepage(ctx, s.DB, h); err != nil {
		return nil, err
	}
	s.publish(h)
	return h, nil
}

// SetImage replaces the homepage hero image and bumps its image version.
// Emits a homepage_updated event.
func (s *HomepageService) SetImage(ctx context.Context, actor authz.Actor, data []byte, contentType string) (*domain.HomepageContent, error) {
	if !authz.Resolve(actor, authz.KindHomepage, authz.ActionEditHomepage, nil) {
		return nil, ErrForbidden
	}
	if len(data) == 0 {
		return nil, ErrValidation
	}
	h, err := repo.GetOrCreateHomepage(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	ref, err := s.Blobs.Put(ctx, data, contentType)
	if err != nil {
		return nil, ErrUnavailable
	}
	old := h.ImageRef
	h.ImageRef = ref
	h.ImageVersion++
	if err := repo.SaveHomepage(ctx, s.DB, h); err != nil {
		_ = s.Blobs.Delete(ctx, ref)
		return nil, err
	}
	if old != "" {
		_ = s.Blobs.Delete(ctx, old)
	}
	s.publish(h)
	return h, nil
}

func (s *HomepageService) publish(h *domain.HomepageContent) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.Event{
		Kind:    events.KindHomepageUpdated,
		Payload: events.HomepageOf(*h),
	})
}
