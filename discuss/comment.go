package discuss

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/tribune/editwindow"
	"github.com/nasermirzaei89/tribune/ratings"
)

type Comment struct {
	ID       string
	PostID   string
	ParentID *string
	AuthorID string
	// Level is the depth in the tree, 0 for comments on the post itself.
	Level int
	// Path lists the ids from the root to this comment: "/<root-id>/.../<id>/".
	Path           string
	Content        string
	ContentHTML    string
	VotesUpCount   int64
	VotesDownCount int64
	Rating         ratings.Score
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (comment *Comment) HasVotes() bool {
	return comment.VotesUpCount > 0 || comment.VotesDownCount > 0
}

func (comment *Comment) EditSubject() editwindow.Subject {
	createdAt := comment.CreatedAt

	return editwindow.Subject{
		Kind:        editwindow.KindComment,
		ID:          comment.ID,
		AuthorID:    comment.AuthorID,
		Frozen:      comment.HasVotes(),
		WindowStart: &createdAt,
	}
}

func childPath(parent *Comment, id string) string {
	if parent == nil {
		return "/" + id + "/"
	}

	return parent.Path + id + "/"
}

type CommentRepository interface {
	// Insert stores the comment and increments comments_count of its post and of its author atomically.
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, commentID string) (comment *Comment, err error)
	// ListRoots returns the top level comments of the post, oldest first.
	ListRoots(ctx context.Context, postID string) (comments []*Comment, err error)
	// ListByPost returns the comments of the post up to maxLevel, oldest first.
	ListByPost(ctx context.Context, postID string, maxLevel *int) (comments []*Comment, err error)
	// ListDescendants returns the comments below ancestor up to maxLevel, oldest first.
	ListDescendants(ctx context.Context, ancestor *Comment, maxLevel *int) (comments []*Comment, err error)
	// UpdateContent stores Content, ContentHTML and UpdatedAt unless the comment got a vote meanwhile.
	UpdateContent(ctx context.Context, comment *Comment) (updated bool, err error)
}

type ListCommentsParams struct {
	PostID   string
	ParentID string
}

// Thread is a comment with its replies nested below it.
type Thread struct {
	Comment *Comment
	Replies []*Thread
}

type CommentNotFoundError struct {
	ID string
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %q not found", err.ID)
}

type CrossPostParentError struct {
	PostID       string
	ParentID     string
	ParentPostID string
}

func (err CrossPostParentError) Error() string {
	return fmt.Sprintf(
		"comment %q belongs to post %q and cannot be replied to from post %q",
		err.ParentID,
		err.ParentPostID,
		err.PostID,
	)
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
