// Comment HTTP handlers.
//
// Comments are a nested resource under posts:
//   - GET    /posts/{id}/comments  (list comments on a post)
//   - POST   /posts/{id}/comments  (add a comment)
//   - GET    /comments/{id}        (retrieve a comment)
//   - DELETE /comments/{id}        (delete, author only)
//
// Comments have no update endpoint.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/utils"
)

// CommentRequest is the JSON payload for creating a comment.
type CommentRequest struct {
	// Body is the comment text.
	Body string `json:"body" example:"Great write-up!"`
}

// ListCommentsResponse wraps a page of comments and pagination information.
type ListCommentsResponse struct {
	Comments   []domain.Comment `json:"comments"`
	Pagination Pagination       `json:"pagination"`
}

// CreateComment godoc
// @ID          createComment
// @Summary     Comment on a post
// @Description Adds a comment to a published post.
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo auth header)"
// @Param       id         path    string  true  "Post ID (UUID)"  format(uuid)
// @Param       body       body    handlers.CommentRequest  true  "Comment payload"
//
// @Success     201  {object}  map[string]any
// @Failure     403  {object}  map[string]any  "Post not published"
// @Failure     404  {object}  map[string]any  "Post not found"
// @Router      /posts/{id}/comments [post]
func (h *Handlers) CreateComment() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		uid, err := requireUser(c)
		if err != nil {
			return err
		}
		postID, err := pathID(c)
		if err != nil {
			return err
		}
		var req CommentRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		cm, err := h.cmtSvc.Create(c.Request.Context(), uid, postID, req.Body)
		if err != nil {
			return err
		}
		success(c, http.StatusCreated, "Comment created successfully.", cm)
		return nil
	})
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments on a post (paginated)
// @Tags        Comments
// @Produce     json
//
// @Param       id         path   string  true  "Post ID (UUID)"  format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  map[string]any  "Post not found"
// @Router      /posts/{id}/comments [get]
func (h *Handlers) ListComments() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		postID, err := pathID(c)
		if err != nil {
			return err
		}
		page, pageSize := pageParams(c)
		items, total, err := h.cmtSvc.List(c.Request.Context(), postID, page, pageSize)
		if err != nil {
			return err
		}
		page, pageSize = utils.ClampPage(page, pageSize, 100)
		success(c, http.StatusOK, "Success.", ListCommentsResponse{
			Comments:   items,
			Pagination: paginate(page, pageSize, total),
		})
		return nil
	})
}

// GetComment godoc
// @ID          getComment
// @Summary     Retrieve a comment
// @Tags        Comments
// @Produce     json
//
// @Param       id  path  string  true  "Comment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  map[string]any  "Comment not found"
// @Router      /comments/{id} [get]
func (h *Handlers) GetComment() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		cm, err := h.cmtSvc.Get(c.Request.Context(), id)
		if err != nil {
			return err
		}
		success(c, http.StatusOK, "Success.", cm)
		return nil
	})
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete a comment
// @Description Deletes a comment; only its author may do so.
// @Tags        Comments
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID (demo auth header)"
// @Param       id         path    string  true  "Comment ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  map[string]any  "Not the comment author"
// @Failure     404  {object}  map[string]any  "Comment not found"
// @Router      /comments/{id} [delete]
func (h *Handlers) DeleteComment() gin.HandlerFunc {
	return h.boundary(func(c *gin.Context) error {
		uid, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		if err := h.cmtSvc.Destroy(c.Request.Context(), uid, id); err != nil {
			return err
		}
		noContent(c)
		return nil
	})
}
