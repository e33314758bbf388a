// Package services – PostService
//
// This file implements the PostService, which drives the five canonical
// operations for posts through the operation pipeline and plugs the blog's
// business rules into the before/after hooks:
//
//   - create: reject duplicate titles per author, derive the slug, attach
//     the author, log a notification event after the save
//   - update: reject title edits that would change the creation-time slug
//   - destroy: veto deleting published posts; comments block deletion via
//     referential protection in the repository
//   - list: restrict anonymous callers to published posts, wrap the external
//     author filter
//   - retrieve: safe lookup with a view event after
//
// Failures raised here are never recovered locally; they propagate to the
// top-level boundary where the classifier maps them to responses.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/pipeline"
	"github.com/tbourn/go-blog-backend/internal/utils"
)

// titleMaxLen caps stored titles by rune length.
const titleMaxLen = 255

// PostRepo defines the repository contract required by PostService.
// Implementations are responsible for persistence of post aggregates.
type PostRepo interface {
	// SavePost persists a post (create or save-in-place), applying extra
	// hook-computed fields first.
	SavePost(ctx context.Context, db *gorm.DB, p *domain.Post, extra map[string]any) (*domain.Post, error)

	// DeletePost removes a post, or fails with a referential-block failure
	// when dependent comments exist.
	DeletePost(ctx context.Context, db *gorm.DB, p *domain.Post) error

	// GetPost fetches a post by ID; missing rows surface the raw
	// record-missing sentinel for the safe-lookup wrapper.
	GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error)

	// CountPostsByTitle counts the author's posts with the exact title.
	CountPostsByTitle(ctx context.Context, db *gorm.DB, authorID, title string) (int64, error)

	// PostsQuery returns the base list query for composition.
	PostsQuery(db *gorm.DB) *gorm.DB

	// FindPosts and CountPosts execute a composed list query.
	FindPosts(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Post, error)
	CountPosts(ctx context.Context, q *gorm.DB) (int64, error)
}

// PostInput carries the validated client fields for create and update.
type PostInput struct {
	Title string
	Body  string
}

// PostFilter carries the list query parameters supplied by the client.
type PostFilter struct {
	// Author restricts results to a single author when non-empty.
	Author string
}

// PostService provides post-level operations. Each method runs one operation
// pipeline; business rules live in the hook types below.
type PostService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the post repository used by this service.
	Repo PostRepo
}

// NewPostService constructs a PostService.
func NewPostService(db *gorm.DB, r PostRepo) *PostService {
	return &PostService{DB: db, Repo: r}
}

// postStore adapts the repository to the pipeline's persistence collaborator.
type postStore struct{ s *PostService }

func (st postStore) Save(ctx context.Context, p *domain.Post, extra map[string]any) (*domain.Post, error) {
	return st.s.Repo.SavePost(ctx, st.s.DB, p, extra)
}

func (st postStore) Delete(ctx context.Context, p *domain.Post) error {
	return st.s.Repo.DeletePost(ctx, st.s.DB, p)
}

//
// Hooks: one value per pipeline invocation, never shared across requests.
//

// postCreateHooks guards creation and derives operation-scoped fields.
type postCreateHooks struct {
	pipeline.NopCreateHooks[domain.Post]
	svc *PostService
}

// BeforeCreate enforces the one-title-per-author business rule.
func (h postCreateHooks) BeforeCreate(ctx context.Context, p *domain.Post) error {
	n, err := h.svc.Repo.CountPostsByTitle(ctx, h.svc.DB, p.AuthorID, p.Title)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Validation(map[string][]string{
			"title": {"You already have a post with this title."},
		})
	}
	return nil
}

// CreateFields derives the slug passed to the save alongside the validated
// fields.
func (h postCreateHooks) CreateFields(_ context.Context, p *domain.Post) (map[string]any, error) {
	return map[string]any{"slug": utils.Slugify(p.Title)}, nil
}

// AfterCreate fires side effects once the post is persisted.
func (h postCreateHooks) AfterCreate(_ context.Context, p *domain.Post) error {
	log.Info().Str("post_id", p.ID).Str("title", p.Title).Str("author", p.AuthorID).Msg("new post created")
	return nil
}

// postUpdateHooks guards updates against slug-changing edits.
type postUpdateHooks struct {
	pipeline.NopUpdateHooks[domain.Post]
}

// BeforeUpdate blocks any title edit that would alter the slug derived at
// creation time.
func (postUpdateHooks) BeforeUpdate(_ context.Context, p *domain.Post) error {
	if utils.Slugify(p.Title) != p.Slug {
		return apperr.Validation(map[string][]string{
			"title": {"Changing the title would alter the slug. Use a different approach to rename."},
		})
	}
	return nil
}

func (postUpdateHooks) AfterUpdate(_ context.Context, p *domain.Post) error {
	log.Info().Str("post_id", p.ID).Msg("post updated")
	return nil
}

// postDestroyHooks vetoes deleting published posts.
type postDestroyHooks struct {
	pipeline.NopDestroyHooks[domain.Post]
}

func (postDestroyHooks) BeforeDestroy(_ context.Context, p *domain.Post) error {
	if p.Published() {
		return apperr.PermissionDenied("Published posts cannot be deleted. Unpublish first.")
	}
	return nil
}

func (postDestroyHooks) AfterDestroy(_ context.Context, p *domain.Post) error {
	log.Info().Str("post_id", p.ID).Str("title", p.Title).Msg("post deleted")
	return nil
}

// postListHooks scopes list queries to what the viewer may see.
type postListHooks struct {
	// viewer is the authenticated user ID, empty for anonymous callers.
	viewer string
}

func (h postListHooks) BeforeList(_ context.Context, q *gorm.DB) (*gorm.DB, error) {
	if h.viewer == "" {
		q = q.Where("status = ?", domain.StatusPublished)
	}
	return q, nil
}

func (h postListHooks) AfterList(_ context.Context, q *gorm.DB) (*gorm.DB, error) {
	log.Debug().Str("viewer", h.viewer).Msg("post list query composed")
	return q, nil
}

// postRetrieveHooks hides drafts from anonymous readers and records views.
type postRetrieveHooks struct {
	pipeline.NopRetrieveHooks[domain.Post]
	viewer string
}

func (h postRetrieveHooks) BeforeRetrieve(_ context.Context, p *domain.Post) error {
	if !p.Published() && p.AuthorID != h.viewer {
		return apperr.ObjectMissing("")
	}
	return nil
}

func (h postRetrieveHooks) AfterRetrieve(_ context.Context, p *domain.Post) error {
	log.Debug().Str("post_id", p.ID).Msg("post retrieved")
	return nil
}

//
// Operations
//

// Create inserts a new draft post owned by userID.
func (s *PostService) Create(ctx context.Context, userID string, in PostInput) (*domain.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	if fields := validatePostInput(in); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	p := &domain.Post{
		AuthorID: userID,
		Title:    in.Title,
		Body:     in.Body,
		Status:   domain.StatusDraft,
	}
	return pipeline.Create[domain.Post](ctx, postCreateHooks{svc: s}, postStore{s}, p)
}

// Update saves new field values onto an existing post owned by userID.
func (s *PostService) Update(ctx context.Context, userID, id string, in PostInput) (*domain.Post, error) {
	p, err := pipeline.SafeLookup(func(ctx context.Context) (*domain.Post, error) {
		return s.Repo.GetPost(ctx, s.DB, id)
	})(ctx)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != userID {
		return nil, apperr.PermissionDenied("Only the author can edit this post.")
	}

	in.Title = strings.TrimSpace(in.Title)
	if fields := validatePostInput(in); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	p.Title = in.Title
	p.Body = in.Body

	return pipeline.Update[domain.Post](ctx, postUpdateHooks{}, postStore{s}, p)
}

// Destroy deletes a post owned by userID, subject to the destroy hooks and
// referential protection.
func (s *PostService) Destroy(ctx context.Context, userID, id string) error {
	p, err := pipeline.SafeLookup(func(ctx context.Context) (*domain.Post, error) {
		return s.Repo.GetPost(ctx, s.DB, id)
	})(ctx)
	if err != nil {
		return err
	}
	if p.AuthorID != userID {
		return apperr.PermissionDenied("You can only delete your own posts.")
	}
	return pipeline.Destroy[domain.Post](ctx, postDestroyHooks{}, postStore{s}, p)
}

// List returns a page of posts visible to viewer plus the total count. The
// author filter runs as the external filter step, wrapped by the list hooks.
func (s *PostService) List(ctx context.Context, viewer string, f PostFilter, page, pageSize int) ([]domain.Post, int64, error) {
	page, pageSize = utils.ClampPage(page, pageSize, 100)

	q, err := pipeline.List[*gorm.DB](ctx, postListHooks{viewer: viewer}, authorFilter(f.Author), s.Repo.PostsQuery(s.DB))
	if err != nil {
		return nil, 0, err
	}

	total, err := s.Repo.CountPosts(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}

	items, err := s.Repo.FindPosts(ctx, q, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get retrieves a single post visible to viewer.
func (s *PostService) Get(ctx context.Context, viewer, id string) (*domain.Post, error) {
	return pipeline.Retrieve[domain.Post](ctx, postRetrieveHooks{viewer: viewer}, func(ctx context.Context) (*domain.Post, error) {
		return s.Repo.GetPost(ctx, s.DB, id)
	})
}

// Publish transitions a draft post to published. Only the author may publish;
// publishing twice is a validation failure.
func (s *PostService) Publish(ctx context.Context, userID, id string) (*domain.Post, error) {
	p, err := pipeline.SafeLookup(func(ctx context.Context) (*domain.Post, error) {
		return s.Repo.GetPost(ctx, s.DB, id)
	})(ctx)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != userID {
		return nil, apperr.PermissionDenied("Only the author can publish this post.")
	}
	if p.Published() {
		return nil, apperr.Validation(map[string][]string{
			"detail": {"Post is already published."},
		})
	}

	out, err := s.Repo.SavePost(ctx, s.DB, p, map[string]any{"status": domain.StatusPublished})
	if err != nil {
		return nil, err
	}
	log.Info().Str("post_id", out.ID).Msg("post published")
	return out, nil
}

// authorFilter is the external filtering collaborator for post lists.
func authorFilter(author string) func(context.Context, *gorm.DB) (*gorm.DB, error) {
	return func(_ context.Context, q *gorm.DB) (*gorm.DB, error) {
		if author != "" {
			q = q.Where("author_id = ?", author)
		}
		return q, nil
	}
}

// validatePostInput collects per-field input errors, empty when valid.
func validatePostInput(in PostInput) map[string][]string {
	fields := map[string][]string{}
	if in.Title == "" {
		fields["title"] = append(fields["title"], "This field is required.")
	} else if utf8.RuneCountInString(in.Title) > titleMaxLen {
		fields["title"] = append(fields["title"], "Title must be at most 255 characters.")
	}
	if strings.TrimSpace(in.Body) == "" {
		fields["body"] = append(fields["body"], "This field is required.")
	}
	return fields
}
