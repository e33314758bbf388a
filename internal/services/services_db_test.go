package services

// Shared helpers for service tests that need a real database: a pure-Go
// in-memory SQLite handle plus repo adapters mirroring the ones the router
// wires in production.

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/repo"
)

var svcDBSeq int

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	svcDBSeq++
	dsn := fmt.Sprintf("file:svcdb%d?mode=memory&cache=shared", svcDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type realPostRepo struct{}

func (realPostRepo) SavePost(ctx context.Context, db *gorm.DB, p *domain.Post, extra map[string]any) (*domain.Post, error) {
	return repo.SavePost(ctx, db, p, extra)
}

func (realPostRepo) DeletePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	return repo.DeletePost(ctx, db, p)
}

func (realPostRepo) GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	return repo.GetPost(ctx, db, id)
}

func (realPostRepo) CountPostsByTitle(ctx context.Context, db *gorm.DB, authorID, title string) (int64, error) {
	return repo.CountPostsByTitle(ctx, db, authorID, title)
}

func (realPostRepo) PostsQuery(db *gorm.DB) *gorm.DB { return repo.PostsQuery(db) }

func (realPostRepo) FindPosts(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Post, error) {
	return repo.FindPosts(ctx, q, offset, limit)
}

func (realPostRepo) CountPosts(ctx context.Context, q *gorm.DB) (int64, error) {
	return repo.CountPosts(ctx, q)
}

type realCommentRepo struct{}

func (realCommentRepo) SaveComment(ctx context.Context, db *gorm.DB, cm *domain.Comment, extra map[string]any) (*domain.Comment, error) {
	return repo.SaveComment(ctx, db, cm, extra)
}

func (realCommentRepo) DeleteComment(ctx context.Context, db *gorm.DB, cm *domain.Comment) error {
	return repo.DeleteComment(ctx, db, cm)
}

func (realCommentRepo) GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	return repo.GetComment(ctx, db, id)
}

func (realCommentRepo) CommentsQuery(db *gorm.DB, postID string) *gorm.DB {
	return repo.CommentsQuery(db, postID)
}

func (realCommentRepo) FindComments(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Comment, error) {
	return repo.FindComments(ctx, q, offset, limit)
}

func (realCommentRepo) CountComments(ctx context.Context, q *gorm.DB) (int64, error) {
	return repo.CountComments(ctx, q)
}
