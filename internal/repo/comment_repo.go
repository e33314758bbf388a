// Package repo – Comment repository.
//
// Context-aware persistence for the Comment model, scoped to a parent post
// where relevant. Same error semantics as the post repository: raw
// record-missing sentinel, translated storage faults otherwise.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// SaveComment persists cm, creating it when it has no identity yet. Extra
// hook-computed fields (post_id, author_id) are applied before the write.
func SaveComment(ctx context.Context, db *gorm.DB, cm *domain.Comment, extra map[string]any) (*domain.Comment, error) {
	for k, v := range extra {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "post_id":
			cm.PostID = s
		case "author_id":
			cm.AuthorID = s
		}
	}

	if cm.ID == "" {
		cm.ID = uuid.NewString()
		cm.CreatedAt = time.Now().UTC()
		if err := db.WithContext(ctx).Create(cm).Error; err != nil {
			return nil, translate(err)
		}
		return cm, nil
	}

	if err := db.WithContext(ctx).Save(cm).Error; err != nil {
		return nil, translate(err)
	}
	return cm, nil
}

// DeleteComment removes cm. Returns ErrNotFound when no row was affected.
func DeleteComment(ctx context.Context, db *gorm.DB, cm *domain.Comment) error {
	res := db.WithContext(ctx).Delete(cm)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetComment fetches a single comment by ID; a missing comment surfaces as
// the raw record-missing sentinel.
func GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	var cm domain.Comment
	err := db.WithContext(ctx).Where("id = ?", id).First(&cm).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cm, nil
}

// CommentsQuery returns the base query for comments on a post, oldest first.
func CommentsQuery(db *gorm.DB, postID string) *gorm.DB {
	return db.Model(&domain.Comment{}).
		Where("post_id = ?", postID).
		Order("created_at asc")
}

// FindComments executes a composed comment query with offset/limit pagination.
func FindComments(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Comment, error) {
	var out []domain.Comment
	err := q.WithContext(ctx).Offset(offset).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// CountComments returns the total number of rows a composed comment query
// matches.
func CountComments(ctx context.Context, q *gorm.DB) (int64, error) {
	var n int64
	err := q.WithContext(ctx).Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// DependentCommentIDs lists the IDs of comments still attached to a post.
// A non-empty result blocks post deletion (referential protection).
func DependentCommentIDs(ctx context.Context, db *gorm.DB, postID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("post_id = ?", postID).
		Order("created_at asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	return ids, nil
}
