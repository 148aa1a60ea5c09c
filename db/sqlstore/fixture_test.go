package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/tribune/contents"
	"github.com/nasermirzaei89/tribune/db/sqlstore"
	"github.com/nasermirzaei89/tribune/db/sqlstore/sqlstoretest"
	"github.com/nasermirzaei89/tribune/discuss"
	"github.com/nasermirzaei89/tribune/users"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db          *sqlstore.DB
	users       *sqlstore.UserRepository
	communities *sqlstore.CommunityRepository
	posts       *sqlstore.PostRepository
	comments    *sqlstore.CommentRepository
	votes       *sqlstore.VoteStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return fixtureFor(sqlstoretest.NewDB(t))
}

func fixtureFor(db *sqlstore.DB) *fixture {
	return &fixture{
		db:          db,
		users:       sqlstore.NewUserRepository(db),
		communities: sqlstore.NewCommunityRepository(db),
		posts:       sqlstore.NewPostRepository(db),
		comments:    sqlstore.NewCommentRepository(db),
		votes:       sqlstore.NewVoteStore(db),
	}
}

func (f *fixture) createUser(t *testing.T, username string) *users.User {
	t.Helper()

	user := &users.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "hash",
		RegisteredAt: baseTime,
	}

	require.NoError(t, f.users.Insert(context.Background(), user))

	return user
}

func (f *fixture) createPost(t *testing.T, authorID string, status contents.Status, at time.Time) *contents.Post {
	t.Helper()

	post := &contents.Post{
		ID:          uuid.NewString(),
		AuthorID:    authorID,
		Title:       "title",
		Content:     "content",
		ContentHTML: "<p>content</p>\n",
		Status:      status,
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	if status == contents.StatusPublished {
		post.PublishedAt = &at
	}

	require.NoError(t, f.posts.Insert(context.Background(), post))

	return post
}

func (f *fixture) createComment(
	t *testing.T,
	postID string,
	parent *discuss.Comment,
	authorID string,
	at time.Time,
) *discuss.Comment {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	comment := &discuss.Comment{
		ID:          id.String(),
		PostID:      postID,
		AuthorID:    authorID,
		Path:        "/" + id.String() + "/",
		Content:     "comment",
		ContentHTML: "<p>comment</p>\n",
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	if parent != nil {
		comment.ParentID = &parent.ID
		comment.Level = parent.Level + 1
		comment.Path = parent.Path + id.String() + "/"
	}

	require.NoError(t, f.comments.Insert(context.Background(), comment))

	return comment
}

func commentIDs(comments []*discuss.Comment) []string {
	ids := make([]string, 0, len(comments))
	for _, comment := range comments {
		ids = append(ids, comment.ID)
	}

	return ids
}
