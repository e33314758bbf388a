// Post HTTP handlers.
//
// This file exposes REST endpoints for post resources:
//   - POST   /posts              (create)
//   - GET    /posts              (list, paginated)
//   - GET    /posts/{id}         (retrieve)
//   - PUT    /posts/{id}         (update)
//   - DELETE /posts/{id}         (destroy)
//   - POST   /posts/{id}/publish (custom action)
//
// Handlers are transport-thin: they authenticate, bind input, invoke the
// operation pipelines through the service layer, and write envelopes. All
// failures ride the error return to the boundary in response.go.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/services"
	"github.com/tbourn/go-blog-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PostService defines post lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PostService interface {
	// Create inserts a new draft post owned by userID.
	Create(ctx context.Context, userID string, in services.PostInput) (*domain.Post, error)
	// Update saves new field values onto an existing post.
	Update(ctx context.Context, userID, id string, in services.PostInput) (*domain.Post, error)
	// Destroy deletes a post, subject to the destroy hooks.
	Destroy(ctx context.Context, userID, id string) error
	// List returns a page of posts visible to viewer and the total count.
	List(ctx context.Context, viewer string, f services.PostFilter, page, pageSize int) ([]domain.Post, int64, error)
	// Get retrieves a single post visible to viewer.
	Get(ctx context.Context, viewer, id string) (*domain.Post, error)
	// Publish transitions a draft post to published.
	Publish(ctx context.Context, userID, id string) (*domain.Post, error)
}

// CommentService defines comment operations consumed by HTTP handlers.
type CommentService interface {
	// Create adds a comment by userID to the given post.
	Create(ctx context.Context, userID, postID, body string) (*domain.Comment, error)
	// Destroy deletes a comment; only its author may do so.
	Destroy(ctx context.Context, userID, id string) error
	// List returns a page of comments on a post and the total count.
	List(ctx context.Context, postID string, page, pageSize int) ([]domain.Comment, int64, error)
	// Get retrieves a single comment.
	Get(ctx context.Context, id string) (*domain.Comment, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for posts and comments. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic, and owns the classifier used by the top-level boundary.
type Handlers struct {
	postSvc    PostService
	cmtSvc     CommentService
	classifier apperr.Classifier
}

// New constructs a Handlers instance bound to the given services and
// classifier.
func New(postSvc PostService, cmtSvc CommentService, classifier apperr.Classifier) *Handlers {
	return &Handlers{postSvc: postSvc, cmtSvc: cmtSvc, classifier: classifier}
}

//
// DTOs
//

// PostRequest is the JSON payload for creating or updating a post.
type PostRequest struct {
	// Title is the display title; the slug is derived from it at creation.
	Title string `json:"title" example:"My First Post"`
	// Body is the full article text.
	Body string `json:"body" example:"Hello world"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListPostsResponse wraps a page of posts and pagination information.
type ListPostsResponse struct {
	Posts      []domain.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

//
// Helpers
//

// pageParams parses page and page_size query params with defaults.
func pageParams(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	pageSize = utils.AtoiDefault(c.Query("page_size"), 20)
	return
}

// pathID validates a :id path parameter as a UUID.
func pathID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperr.BadRequest("id must be a UUID")
	}
	return id, nil
}

// paginate computes the pagination block for a page of results.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Handlers
//

// CreatePost godoc
// @ID          createPost
// @Summary     Create a post
// @Description Creates a draft post owned by the current user.
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo auth header)"  example(alice)
// @Param       body       body    handlers.PostRequest  true  "Post payload"
//
// @Success     201  {object}  map[string]any
// @Failure     400  {object}  map[string]any  "Validation or parse error"
// @Failure     401  {object}  map[string]any  "Not authenticated"
// @Router      /posts [post]
func (h *Handlers) CreatePost() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		uid, err := requireUser(c)
		if err != nil {
			return err
		}
		var req PostRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		p, err := h.postSvc.Create(c.Request.Context(), uid, services.PostInput{Title: req.Title, Body: req.Body})
		if err != nil {
			return err
		}
		success(c, http.StatusCreated, "Post created successfully.", p)
		return nil
	})
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List posts (paginated)
// @Description Returns a page of posts. Anonymous callers only see published posts.
// @Tags        Posts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo auth header)"  example(alice)
// @Param       author     query   string  false "Filter by author"
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  map[string]any
// @Router      /posts [get]
func (h *Handlers) ListPosts() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		page, pageSize := pageParams(c)
		filter := services.PostFilter{Author: c.Query("author")}
		items, total, err := h.postSvc.List(c.Request.Context(), currentUser(c), filter, page, pageSize)
		if err != nil {
			return err
		}
		page, pageSize = utils.ClampPage(page, pageSize, 100)
		success(c, http.StatusOK, "Success.", ListPostsResponse{
			Posts:      items,
			Pagination: paginate(page, pageSize, total),
		})
		return nil
	})
}

// GetPost godoc
// @ID          getPost
// @Summary     Retrieve a post
// @Tags        Posts
// @Produce     json
//
// @Param       id  path  string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  map[string]any  "Post not found"
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		p, err := h.postSvc.Get(c.Request.Context(), currentUser(c), id)
		if err != nil {
			return err
		}
		success(c, http.StatusOK, "Success.", p)
		return nil
	})
}

// UpdatePost godoc
// @ID          updatePost
// @Summary     Update a post
// @Description Saves new field values onto a post owned by the current user.
// @Tags        Posts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo auth header)"
// @Param       id         path    string  true  "Post ID (UUID)"  format(uuid)
// @Param       body       body    handlers.PostRequest  true  "New field values"
//
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  map[string]any  "Validation error"
// @Failure     403  {object}  map[string]any  "Not the author"
// @Failure     404  {object}  map[string]any  "Post not found"
// @Router      /posts/{id} [put]
func (h *Handlers) UpdatePost() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		uid, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		var req PostRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		p, err := h.postSvc.Update(c.Request.Context(), uid, id, services.PostInput{Title: req.Title, Body: req.Body})
		if err != nil {
			return err
		}
		success(c, http.StatusOK, "Post updated successfully.", p)
		return nil
	})
}

// DeletePost godoc
// @ID          deletePost
// @Summary     Delete a post
// @Description Deletes a draft post owned by the current user. Published posts
// @Description and posts with comments cannot be deleted.
// @Tags        Posts
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo auth header)"
// @Param       id         path    string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  map[string]any  "Destroy vetoed"
// @Failure     404  {object}  map[string]any  "Post not found"
// @Failure     409  {object}  map[string]any  "Blocked by comments"
// @Router      /posts/{id} [delete]
func (h *Handlers) DeletePost() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		uid, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		if err := h.postSvc.Destroy(c.Request.Context(), uid, id); err != nil {
			return err
		}
		noContent(c)
		return nil
	})
}

// PublishPost godoc
// @ID          publishPost
// @Summary     Publish a draft post
// @Description Custom action outside the standard CRUD set; demonstrates the
// @Description ad-hoc error boundary. Only the author can publish.
// @Tags        Posts
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo auth header)"
// @Param       id         path    string  true  "Post ID (UUID)"  format(uuid)
//
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  map[string]any  "Already published"
// @Failure     401  {object}  map[string]any  "Not authenticated"
// @Failure     403  {object}  map[string]any  "Not the author"
// @Router      /posts/{id}/publish [post]
func (h *Handlers) PublishPost() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		uid, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		p, err := h.postSvc.Publish(c.Request.Context(), uid, id)
		if err != nil {
			return err
		}
		success(c, http.StatusOK, "Post published successfully.", gin.H{
			"id":     p.ID,
			"title":  p.Title,
			"status": p.Status,
		})
		return nil
	})
}
