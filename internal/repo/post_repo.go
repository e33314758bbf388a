// Package repo – Post repository.
//
// Thin, context-aware persistence functions for the Post model. No business
// logic lives here; hooks and business rules belong to the service layer.
//
// Error semantics:
//   - A missing post surfaces as gorm.ErrRecordNotFound (ErrNotFound), which
//     the pipeline's safe-lookup wrapper turns into a 404.
//   - All other database faults are translated to storage failure kinds
//     (see errors.go).
//   - Deleting a post that still has comments fails with a referential-block
//     failure carrying the dependent comment IDs.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/domain"
)

// SavePost persists p, creating it when it has no identity yet and saving in
// place otherwise. Extra hook-computed fields (author_id, slug, status) are
// applied to the entity before the write.
func SavePost(ctx context.Context, db *gorm.DB, p *domain.Post, extra map[string]any) (*domain.Post, error) {
	applyPostFields(p, extra)

	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = time.Now().UTC()
		if p.Status == "" {
			p.Status = domain.StatusDraft
		}
		if err := db.WithContext(ctx).Create(p).Error; err != nil {
			return nil, translate(err)
		}
		return p, nil
	}

	if err := db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// applyPostFields merges operation-scoped extra fields into the entity.
// Unknown keys are ignored; the persistence layer owns this mapping.
func applyPostFields(p *domain.Post, extra map[string]any) {
	for k, v := range extra {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "author_id":
			p.AuthorID = s
		case "slug":
			p.Slug = s
		case "status":
			p.Status = s
		}
	}
}

// DeletePost removes p. When dependent comments exist the delete is blocked
// and a referential-block failure listing their IDs is returned instead.
func DeletePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	deps, err := DependentCommentIDs(ctx, db, p.ID)
	if err != nil {
		return err
	}
	if len(deps) > 0 {
		return apperr.ReferentialBlock(deps)
	}
	res := db.WithContext(ctx).Delete(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetPost fetches a single post by ID. A missing post surfaces as the raw
// record-missing sentinel for the safe-lookup wrapper to translate.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// CountPostsByTitle returns how many posts the author already has with the
// exact title. Used by the duplicate-title business rule on create.
func CountPostsByTitle(ctx context.Context, db *gorm.DB, authorID, title string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("author_id = ? AND title = ?", authorID, title).
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// PostsQuery returns the base post query, newest first. List hooks and the
// pagination collaborator compose further conditions onto it.
func PostsQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&domain.Post{}).Order("created_at desc")
}

// FindPosts executes a composed post query with offset/limit pagination.
func FindPosts(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := q.WithContext(ctx).Offset(offset).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// CountPosts returns the total number of rows a composed post query matches.
func CountPosts(ctx context.Context, q *gorm.DB) (int64, error) {
	var n int64
	err := q.WithContext(ctx).Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}
