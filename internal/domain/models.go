// Package domain defines the persistence models for posts and comments.
// These types are mapped with GORM and form the core data layer of the
// blog application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Post status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post represents an article owned by an author. The slug is derived from the
// title at creation time and never changes afterwards; updates that would
// alter it are rejected by the post service.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - AuthorID: identifier of the post owner; indexed for efficient retrieval.
//   - Title / Slug: display title and its URL-safe derivative (slug unique).
//   - Body: full article text.
//   - Status: "draft" or "published" (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Post struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	AuthorID  string         `json:"author_id"  gorm:"type:varchar(64);not null;index:idx_author_posts"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null"`
	Slug      string         `json:"slug"       gorm:"type:varchar(255);not null;uniqueIndex:ux_posts_slug"`
	Body      string         `json:"body"       gorm:"type:text;not null"`
	Status    string         `json:"status"     gorm:"type:varchar(20);not null;default:'draft';check:status IN ('draft','published')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Published reports whether the post is visible to anonymous readers.
func (p *Post) Published() bool { return p.Status == StatusPublished }

// Comment represents a reader comment attached to a post. Comments protect
// their parent: a post with live comments cannot be deleted (RESTRICT), which
// surfaces as a referential-block failure listing the dependent comment IDs.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PostID: foreign key to the owning post (indexed, delete restricted).
//   - AuthorID: identifier of the comment author.
//   - Body: comment text.
//   - CreatedAt: timestamp managed by GORM.
type Comment struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id"   gorm:"type:char(36);not null;index:idx_post_comments"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(64);not null;index"`
	Body      string    `json:"body"      gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	// Post is the parent article. Deletion of a post with comments is
	// restricted at the database level as a backstop to the repo check.
	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }
