package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/domain"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---

var dbSeq int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbSeq++
	dsn := fmt.Sprintf("file:repodb%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedPost(t *testing.T, db *gorm.DB, author, title, slug, status string) *domain.Post {
	t.Helper()
	p, err := SavePost(context.Background(), db, &domain.Post{
		AuthorID: author, Title: title, Slug: slug, Status: status, Body: "body",
	}, nil)
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

// ----- posts -----

func TestSavePost_CreateAssignsIdentityAndDefaults(t *testing.T) {
	db := newTestDB(t)

	p, err := SavePost(context.Background(), db, &domain.Post{Title: "T", Body: "B"},
		map[string]any{"author_id": "alice", "slug": "t"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.ID == "" {
		t.Fatal("id not assigned")
	}
	if p.AuthorID != "alice" || p.Slug != "t" {
		t.Fatalf("extra fields not applied: %+v", p)
	}
	if p.Status != domain.StatusDraft {
		t.Fatalf("status = %q, want draft default", p.Status)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestSavePost_UpdateInPlace(t *testing.T) {
	db := newTestDB(t)
	p := seedPost(t, db, "alice", "T", "t", domain.StatusDraft)

	p.Body = "edited"
	out, err := SavePost(context.Background(), db, p, map[string]any{"status": domain.StatusPublished})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out.ID != p.ID {
		t.Fatalf("identity changed: %s != %s", out.ID, p.ID)
	}

	got, err := GetPost(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Body != "edited" || got.Status != domain.StatusPublished {
		t.Fatalf("update lost: %+v", got)
	}
}

func TestSavePost_ExtraIgnoresUnknownAndNonString(t *testing.T) {
	db := newTestDB(t)

	p, err := SavePost(context.Background(), db, &domain.Post{Title: "T", Body: "B"},
		map[string]any{"author_id": "alice", "slug": "t", "bogus": "x", "status": 42})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.Status != domain.StatusDraft {
		t.Fatalf("non-string extra must be ignored, status = %q", p.Status)
	}
}

func TestSavePost_DuplicateSlugIsIntegrity(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, "alice", "T", "same-slug", domain.StatusDraft)

	_, err := SavePost(context.Background(), db, &domain.Post{
		AuthorID: "bob", Title: "Other", Slug: "same-slug", Body: "B",
	}, nil)
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindIntegrityViolation {
		t.Fatalf("want integrity failure, got %v", err)
	}
}

func TestGetPost_MissingIsRawRecordNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := GetPost(context.Background(), db, "no-such-id")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want raw record-missing sentinel, got %v", err)
	}
	var f *apperr.Failure
	if errors.As(err, &f) {
		t.Fatalf("record-missing must not be pre-translated here: %v", f)
	}
}

func TestDeletePost_BlockedByComments(t *testing.T) {
	db := newTestDB(t)
	p := seedPost(t, db, "alice", "T", "t", domain.StatusPublished)

	cm, err := SaveComment(context.Background(), db, &domain.Comment{Body: "hi"},
		map[string]any{"post_id": p.ID, "author_id": "bob"})
	if err != nil {
		t.Fatalf("save comment: %v", err)
	}

	err = DeletePost(context.Background(), db, p)
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindReferentialBlock {
		t.Fatalf("want referential block, got %v", err)
	}
	deps, _ := f.Extra["dependents"].([]string)
	if len(deps) != 1 || deps[0] != cm.ID {
		t.Fatalf("dependents = %v, want [%s]", deps, cm.ID)
	}

	// still there
	if _, err := GetPost(context.Background(), db, p.ID); err != nil {
		t.Fatalf("post must survive a blocked delete: %v", err)
	}
}

func TestDeletePost_SucceedsWithoutComments(t *testing.T) {
	db := newTestDB(t)
	p := seedPost(t, db, "alice", "T", "t", domain.StatusDraft)

	if err := DeletePost(context.Background(), db, p); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetPost(context.Background(), db, p.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("post should be gone, got %v", err)
	}
}

func TestDeletePost_MissingRowIsRecordNotFound(t *testing.T) {
	db := newTestDB(t)

	err := DeletePost(context.Background(), db, &domain.Post{ID: "ghost"})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want record-missing, got %v", err)
	}
}

func TestCountPostsByTitle(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, "alice", "Same", "s1", domain.StatusDraft)
	seedPost(t, db, "alice", "Other", "s2", domain.StatusDraft)
	seedPost(t, db, "bob", "Same", "s3", domain.StatusDraft)

	n, err := CountPostsByTitle(context.Background(), db, "alice", "Same")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1 (per-author)", n)
	}
}

func TestPostsQuery_PaginationAndOrder(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		seedPost(t, db, "alice", fmt.Sprintf("T%d", i), fmt.Sprintf("t%d", i), domain.StatusPublished)
	}

	q := PostsQuery(db)
	total, err := CountPosts(context.Background(), q)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d", total)
	}

	page, err := FindPosts(context.Background(), PostsQuery(db), 2, 2)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page len = %d", len(page))
	}
}

func TestPostsQuery_ComposesConditions(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, "alice", "A", "a", domain.StatusPublished)
	seedPost(t, db, "bob", "B", "b", domain.StatusDraft)

	q := PostsQuery(db).Where("status = ?", domain.StatusPublished)
	total, err := CountPosts(context.Background(), q)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("published total = %d", total)
	}
}

// ----- comments -----

func TestSaveComment_AppliesExtras(t *testing.T) {
	db := newTestDB(t)
	p := seedPost(t, db, "alice", "T", "t", domain.StatusPublished)

	cm, err := SaveComment(context.Background(), db, &domain.Comment{Body: "hello"},
		map[string]any{"post_id": p.ID, "author_id": "bob"})
	if err != nil {
		t.Fatalf("save comment: %v", err)
	}
	if cm.ID == "" || cm.PostID != p.ID || cm.AuthorID != "bob" {
		t.Fatalf("comment fields: %+v", cm)
	}
}

func TestCommentsQuery_ScopedToPost(t *testing.T) {
	db := newTestDB(t)
	p1 := seedPost(t, db, "alice", "P1", "p1", domain.StatusPublished)
	p2 := seedPost(t, db, "alice", "P2", "p2", domain.StatusPublished)

	for i := 0; i < 3; i++ {
		if _, err := SaveComment(context.Background(), db, &domain.Comment{Body: "c"},
			map[string]any{"post_id": p1.ID, "author_id": "bob"}); err != nil {
			t.Fatalf("seed comment: %v", err)
		}
	}
	if _, err := SaveComment(context.Background(), db, &domain.Comment{Body: "other"},
		map[string]any{"post_id": p2.ID, "author_id": "bob"}); err != nil {
		t.Fatalf("seed comment: %v", err)
	}

	total, err := CountComments(context.Background(), CommentsQuery(db, p1.ID))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d", total)
	}

	items, err := FindComments(context.Background(), CommentsQuery(db, p1.ID), 0, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for _, cm := range items {
		if cm.PostID != p1.ID {
			t.Fatalf("leaked comment from other post: %+v", cm)
		}
	}
}

func TestDeleteComment(t *testing.T) {
	db := newTestDB(t)
	p := seedPost(t, db, "alice", "T", "t", domain.StatusPublished)
	cm, err := SaveComment(context.Background(), db, &domain.Comment{Body: "bye"},
		map[string]any{"post_id": p.ID, "author_id": "bob"})
	if err != nil {
		t.Fatalf("save comment: %v", err)
	}

	if err := DeleteComment(context.Background(), db, cm); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetComment(context.Background(), db, cm.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("comment should be gone, got %v", err)
	}

	// post deletable once comments are gone
	if err := DeletePost(context.Background(), db, p); err != nil {
		t.Fatalf("delete post after comments removed: %v", err)
	}
}

// ----- error translation -----

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want apperr.Kind
	}{
		{"duplicated key", gorm.ErrDuplicatedKey, apperr.KindIntegrityViolation},
		{"fk violated", gorm.ErrForeignKeyViolated, apperr.KindIntegrityViolation},
		{"check violated", gorm.ErrCheckConstraintViolated, apperr.KindIntegrityViolation},
		{"invalid data", gorm.ErrInvalidData, apperr.KindDataInvalid},
		{"deadline", context.DeadlineExceeded, apperr.KindStorageUnavailable},
		{"canceled", context.Canceled, apperr.KindStorageUnavailable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: posts.slug"), apperr.KindIntegrityViolation},
		{"sqlite not null", errors.New("NOT NULL constraint failed: posts.title"), apperr.KindIntegrityViolation},
		{"sqlite mismatch", errors.New("datatype mismatch"), apperr.KindDataInvalid},
		{"sqlite locked", errors.New("database is locked (5) (SQLITE_BUSY)"), apperr.KindStorageUnavailable},
		{"sqlite io", errors.New("disk I/O error"), apperr.KindStorageUnavailable},
		{"anything else", errors.New("mystery"), apperr.KindStorageError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(tc.in)
			var f *apperr.Failure
			if !errors.As(got, &f) {
				t.Fatalf("translate(%v) = %v, not a failure", tc.in, got)
			}
			if f.Kind != tc.want {
				t.Fatalf("kind = %q, want %q", f.Kind, tc.want)
			}
			if !errors.Is(got, tc.in) {
				t.Fatalf("cause chain broken for %v", tc.in)
			}
		})
	}
}

func TestTranslate_PassThroughs(t *testing.T) {
	if translate(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if got := translate(gorm.ErrRecordNotFound); !errors.Is(got, gorm.ErrRecordNotFound) {
		t.Fatalf("record-missing mutated: %v", got)
	}
	var f *apperr.Failure
	if errors.As(translate(gorm.ErrRecordNotFound), &f) {
		t.Fatal("record-missing must pass through raw")
	}
}
