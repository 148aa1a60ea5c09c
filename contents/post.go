package contents

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/tribune/editwindow"
	"github.com/nasermirzaei89/tribune/ratings"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
)

func (status Status) IsValid() bool {
	switch status {
	case StatusDraft, StatusPublished, StatusDeleted:
		return true
	default:
		return false
	}
}

type Post struct {
	ID          string
	AuthorID    string
	CommunityID *string
	Title       string
	Content     string
	ContentHTML string
	Status      Status
	// PublishedAt is set on the first transition to published and never changes afterwards.
	PublishedAt    *time.Time
	CommentsCount  int64
	VotesUpCount   int64
	VotesDownCount int64
	Rating         ratings.Score
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (post *Post) EditSubject() editwindow.Subject {
	subject := editwindow.Subject{
		Kind:     editwindow.KindPost,
		ID:       post.ID,
		AuthorID: post.AuthorID,
	}

	if post.Status == StatusPublished && post.PublishedAt != nil {
		subject.WindowStart = post.PublishedAt
	}

	return subject
}

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, postID string) (post *Post, err error)
	List(ctx context.Context, params ListPostsParams) (posts []*Post, err error)
	// UpdateContent stores Title, Content, ContentHTML and UpdatedAt of the post.
	UpdateContent(ctx context.Context, post *Post) (err error)
	// UpdateStatus moves the post to status "to" only if its current status is one of "from".
	// Moving to published sets published_at to "at" unless it is already set.
	UpdateStatus(
		ctx context.Context,
		postID string,
		from []Status,
		to Status,
		at time.Time,
	) (updated bool, err error)
}

type ListPostsParams struct {
	AuthorID    string
	CommunityID string
	Status      Status
}

type PostNotFoundError struct {
	ID string
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %q not found", err.ID)
}

type PublishTransitionError struct {
	PostID string
	Status Status
	Reason string
}

func (err PublishTransitionError) Error() string {
	return fmt.Sprintf("post %q in status %s cannot be published: %s", err.PostID, err.Status, err.Reason)
}

type DeleteForbiddenError struct {
	PostID  string
	ActorID string
}

func (err DeleteForbiddenError) Error() string {
	return fmt.Sprintf("user %q is not allowed to delete post %q", err.ActorID, err.PostID)
}

type InvalidRequestError struct {
	Err error
}

func (err InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", err.Err)
}

func (err InvalidRequestError) Unwrap() error {
	return err.Err
}
