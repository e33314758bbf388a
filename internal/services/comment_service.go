// Package services – CommentService
//
// Comments are a nested resource under posts. Creation resolves the parent
// post through the safe-lookup wrapper (a missing parent is a 404, never an
// unclassified 500) and requires the parent to be published. Deletion is
// author-only. Comments have no update operation.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/pipeline"
	"github.com/tbourn/go-blog-backend/internal/utils"
)

// CommentRepo defines the repository contract required by CommentService.
type CommentRepo interface {
	SaveComment(ctx context.Context, db *gorm.DB, cm *domain.Comment, extra map[string]any) (*domain.Comment, error)
	DeleteComment(ctx context.Context, db *gorm.DB, cm *domain.Comment) error
	GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error)
	CommentsQuery(db *gorm.DB, postID string) *gorm.DB
	FindComments(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Comment, error)
	CountComments(ctx context.Context, q *gorm.DB) (int64, error)
}

// PostGetter is the slice of the post repository the comment service needs to
// resolve parent posts.
type PostGetter interface {
	GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error)
}

// CommentService provides comment-level operations for the nested
// /posts/{id}/comments resource.
type CommentService struct {
	DB    *gorm.DB
	Repo  CommentRepo
	Posts PostGetter
}

// NewCommentService constructs a CommentService.
func NewCommentService(db *gorm.DB, r CommentRepo, posts PostGetter) *CommentService {
	return &CommentService{DB: db, Repo: r, Posts: posts}
}

// commentStore adapts the repository to the pipeline's persistence collaborator.
type commentStore struct{ s *CommentService }

func (st commentStore) Save(ctx context.Context, cm *domain.Comment, extra map[string]any) (*domain.Comment, error) {
	return st.s.Repo.SaveComment(ctx, st.s.DB, cm, extra)
}

func (st commentStore) Delete(ctx context.Context, cm *domain.Comment) error {
	return st.s.Repo.DeleteComment(ctx, st.s.DB, cm)
}

// commentCreateHooks resolves and gates the parent post, then attaches the
// parent and author as operation-scoped fields.
type commentCreateHooks struct {
	pipeline.NopCreateHooks[domain.Comment]
	svc    *CommentService
	userID string
	postID string
}

func (h commentCreateHooks) CreateFields(ctx context.Context, _ *domain.Comment) (map[string]any, error) {
	post, err := pipeline.SafeLookup(func(ctx context.Context) (*domain.Post, error) {
		return h.svc.Posts.GetPost(ctx, h.svc.DB, h.postID)
	})(ctx)
	if err != nil {
		return nil, err
	}
	if !post.Published() {
		return nil, apperr.PermissionDenied("You can only comment on published posts.")
	}
	return map[string]any{"post_id": post.ID, "author_id": h.userID}, nil
}

func (h commentCreateHooks) AfterCreate(_ context.Context, cm *domain.Comment) error {
	log.Info().Str("comment_id", cm.ID).Str("post_id", cm.PostID).Str("author", cm.AuthorID).Msg("comment created")
	return nil
}

// commentDestroyHooks restricts deletion to the comment's author.
type commentDestroyHooks struct {
	pipeline.NopDestroyHooks[domain.Comment]
	userID string
}

func (h commentDestroyHooks) BeforeDestroy(_ context.Context, cm *domain.Comment) error {
	if cm.AuthorID != h.userID {
		return apperr.PermissionDenied("You can only delete your own comments.")
	}
	return nil
}

func (h commentDestroyHooks) AfterDestroy(_ context.Context, cm *domain.Comment) error {
	log.Info().Str("comment_id", cm.ID).Str("post_id", cm.PostID).Msg("comment deleted")
	return nil
}

//
// Operations
//

// Create adds a comment by userID to the post identified by postID.
func (s *CommentService) Create(ctx context.Context, userID, postID, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation(map[string][]string{
			"body": {"This field is required."},
		})
	}
	cm := &domain.Comment{Body: body}
	h := commentCreateHooks{svc: s, userID: userID, postID: postID}
	return pipeline.Create[domain.Comment](ctx, h, commentStore{s}, cm)
}

// Destroy deletes a comment; only its author may do so.
func (s *CommentService) Destroy(ctx context.Context, userID, id string) error {
	cm, err := pipeline.SafeLookup(func(ctx context.Context) (*domain.Comment, error) {
		return s.Repo.GetComment(ctx, s.DB, id)
	})(ctx)
	if err != nil {
		return err
	}
	return pipeline.Destroy[domain.Comment](ctx, commentDestroyHooks{userID: userID}, commentStore{s}, cm)
}

// List returns a page of comments on a post, oldest first, plus the total
// count. The parent post must exist.
func (s *CommentService) List(ctx context.Context, postID string, page, pageSize int) ([]domain.Comment, int64, error) {
	if _, err := pipeline.SafeLookup(func(ctx context.Context) (*domain.Post, error) {
		return s.Posts.GetPost(ctx, s.DB, postID)
	})(ctx); err != nil {
		return nil, 0, err
	}

	page, pageSize = utils.ClampPage(page, pageSize, 100)

	// Comments need no list hooks; the defaults pass the query through.
	q, err := pipeline.List[*gorm.DB](ctx, pipeline.NopListHooks[*gorm.DB]{}, passthroughFilter, s.Repo.CommentsQuery(s.DB, postID))
	if err != nil {
		return nil, 0, err
	}

	total, err := s.Repo.CountComments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Comment{}, 0, nil
	}

	items, err := s.Repo.FindComments(ctx, q, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get retrieves a single comment.
func (s *CommentService) Get(ctx context.Context, id string) (*domain.Comment, error) {
	return pipeline.Retrieve[domain.Comment](ctx, pipeline.NopRetrieveHooks[domain.Comment]{}, func(ctx context.Context) (*domain.Comment, error) {
		return s.Repo.GetComment(ctx, s.DB, id)
	})
}

// passthroughFilter is the identity external filter for comment lists.
func passthroughFilter(_ context.Context, q *gorm.DB) (*gorm.DB, error) { return q, nil }
