package contents_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/nasermirzaei89/tribune/communities"
	"github.com/nasermirzaei89/tribune/contents"
	"github.com/nasermirzaei89/tribune/editwindow"
	"github.com/nasermirzaei89/tribune/markup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPostRepo struct {
	posts map[string]*contents.Post
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{posts: make(map[string]*contents.Post)}
}

func (repo *stubPostRepo) Insert(_ context.Context, post *contents.Post) error {
	stored := *post
	repo.posts[post.ID] = &stored

	return nil
}

func (repo *stubPostRepo) Find(_ context.Context, postID string) (*contents.Post, error) {
	post, ok := repo.posts[postID]
	if !ok {
		return nil, &contents.PostNotFoundError{ID: postID}
	}

	found := *post

	return &found, nil
}

func (repo *stubPostRepo) List(_ context.Context, params contents.ListPostsParams) ([]*contents.Post, error) {
	posts := make([]*contents.Post, 0)

	for _, post := range repo.posts {
		if params.AuthorID != "" && post.AuthorID != params.AuthorID {
			continue
		}

		if params.Status != "" && post.Status != params.Status {
			continue
		}

		posts = append(posts, post)
	}

	return posts, nil
}

func (repo *stubPostRepo) UpdateContent(_ context.Context, post *contents.Post) error {
	stored := repo.posts[post.ID]
	stored.Title = post.Title
	stored.Content = post.Content
	stored.ContentHTML = post.ContentHTML
	stored.UpdatedAt = post.UpdatedAt

	return nil
}

func (repo *stubPostRepo) UpdateStatus(
	_ context.Context,
	postID string,
	from []contents.Status,
	to contents.Status,
	at time.Time,
) (bool, error) {
	post, ok := repo.posts[postID]
	if !ok || !slices.Contains(from, post.Status) {
		return false, nil
	}

	post.Status = to
	post.UpdatedAt = at

	if to == contents.StatusPublished && post.PublishedAt == nil {
		post.PublishedAt = &at
	}

	return true, nil
}

type stubCommunities struct{}

func (stubCommunities) GetCommunity(_ context.Context, communityID string) (*communities.Community, error) {
	if communityID == "golang" {
		return &communities.Community{ID: communityID, Name: "golang", Status: communities.StatusOpen}, nil
	}

	return nil, &communities.CommunityNotFoundError{ID: communityID}
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestService(t *testing.T) (*contents.Service, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	policy, err := editwindow.NewPolicy(
		editwindow.Config{PostWindow: time.Hour, CommentWindow: 15 * time.Minute},
		editwindow.WithClock(c.Now),
	)
	require.NoError(t, err)

	svc := contents.NewService(
		newStubPostRepo(),
		stubCommunities{},
		policy,
		markup.NewRenderer(),
		contents.WithClock(c.Now),
	)

	return svc, c
}

func TestService_CreatePost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	t.Run("draft", func(t *testing.T) {
		post, err := svc.CreatePost(ctx, contents.CreatePostRequest{
			AuthorID: "alice",
			Title:    "Hello",
			Content:  "first *post*",
		})
		require.NoError(t, err)
		assert.Equal(t, contents.StatusDraft, post.Status)
		assert.Nil(t, post.PublishedAt)
		assert.Contains(t, post.ContentHTML, "<em>post</em>")
	})

	t.Run("published in community", func(t *testing.T) {
		post, err := svc.CreatePost(ctx, contents.CreatePostRequest{
			AuthorID:    "alice",
			CommunityID: "golang",
			Title:       "Hello",
			Content:     "content",
			Publish:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, contents.StatusPublished, post.Status)
		require.NotNil(t, post.PublishedAt)
		require.NotNil(t, post.CommunityID)
	})

	t.Run("unknown community", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, contents.CreatePostRequest{
			AuthorID:    "alice",
			CommunityID: "rust",
			Title:       "Hello",
			Content:     "content",
		})
		require.Error(t, err)

		notFoundErr := &communities.CommunityNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Content: "content"})
		require.Error(t, err)

		invalidErr := &contents.InvalidRequestError{}
		require.ErrorAs(t, err, &invalidErr)
	})
}

func TestService_PublishPost(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Title: "t", Content: "c"})
	require.NoError(t, err)

	t.Run("someone else", func(t *testing.T) {
		_, err := svc.PublishPost(ctx, post.ID, "bob")
		require.Error(t, err)

		transitionErr := &contents.PublishTransitionError{}
		require.ErrorAs(t, err, &transitionErr)
	})

	publishedAt := c.now

	t.Run("draft to published", func(t *testing.T) {
		published, err := svc.PublishPost(ctx, post.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, contents.StatusPublished, published.Status)
		require.NotNil(t, published.PublishedAt)
		assert.Equal(t, publishedAt, *published.PublishedAt)
	})

	t.Run("publish again keeps published_at", func(t *testing.T) {
		c.now = c.now.Add(time.Minute)

		published, err := svc.PublishPost(ctx, post.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, contents.StatusPublished, published.Status)
		assert.Equal(t, publishedAt, *published.PublishedAt)
	})

	t.Run("deleted cannot be published", func(t *testing.T) {
		err := svc.DeletePost(ctx, post.ID, "alice")
		require.NoError(t, err)

		_, err = svc.PublishPost(ctx, post.ID, "alice")
		require.Error(t, err)

		transitionErr := &contents.PublishTransitionError{}
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, contents.StatusDeleted, transitionErr.Status)

		deleted, err := svc.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, contents.StatusDeleted, deleted.Status)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := svc.PublishPost(ctx, "missing", "alice")
		require.Error(t, err)

		notFoundErr := &contents.PostNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestService_DeletePost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Title: "t", Content: "c", Publish: true})
	require.NoError(t, err)

	err = svc.DeletePost(ctx, post.ID, "bob")
	require.Error(t, err)

	forbiddenErr := &contents.DeleteForbiddenError{}
	require.ErrorAs(t, err, &forbiddenErr)

	err = svc.DeletePost(ctx, post.ID, "alice")
	require.NoError(t, err)

	err = svc.DeletePost(ctx, post.ID, "alice")
	require.NoError(t, err)

	deleted, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, contents.StatusDeleted, deleted.Status)
	assert.NotNil(t, deleted.PublishedAt)
}

func TestService_UpdateDeletedPost(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Title: "t", Content: "c", Publish: true})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, post.ID, "alice"))

	// a deleted post has no window and no vote freeze
	c.now = c.now.Add(24 * time.Hour)

	ok, err := svc.CanEditPost(ctx, "alice", post.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanEditPost(ctx, "bob", post.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	updated, err := svc.UpdatePost(ctx, contents.UpdatePostRequest{
		PostID:  post.ID,
		ActorID: "alice",
		Title:   "removed",
		Content: "removed",
	})
	require.NoError(t, err)
	assert.Equal(t, "removed", updated.Title)
	assert.Equal(t, contents.StatusDeleted, updated.Status)
}

func TestService_UpdatePost(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	draft, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Title: "t", Content: "c"})
	require.NoError(t, err)

	published, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Title: "t", Content: "c", Publish: true})
	require.NoError(t, err)

	t.Run("author edits within window", func(t *testing.T) {
		updated, err := svc.UpdatePost(ctx, contents.UpdatePostRequest{
			PostID:  published.ID,
			ActorID: "alice",
			Title:   "new title",
			Content: "new **content**",
		})
		require.NoError(t, err)
		assert.Equal(t, "new title", updated.Title)
		assert.Contains(t, updated.ContentHTML, "<strong>content</strong>")
	})

	t.Run("someone else", func(t *testing.T) {
		_, err := svc.UpdatePost(ctx, contents.UpdatePostRequest{
			PostID:  published.ID,
			ActorID: "bob",
			Title:   "x",
			Content: "x",
		})
		require.Error(t, err)

		forbiddenErr := &editwindow.EditForbiddenError{}
		require.ErrorAs(t, err, &forbiddenErr)
		assert.Equal(t, editwindow.ReasonNotAuthor, forbiddenErr.Reason)
	})

	t.Run("window is measured from publication", func(t *testing.T) {
		c.now = c.now.Add(2 * time.Hour)

		ok, err := svc.CanEditPost(ctx, "alice", published.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = svc.CanEditPost(ctx, "alice", draft.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = svc.UpdatePost(ctx, contents.UpdatePostRequest{
			PostID:  published.ID,
			ActorID: "alice",
			Title:   "late",
			Content: "late",
		})
		require.Error(t, err)

		forbiddenErr := &editwindow.EditForbiddenError{}
		require.ErrorAs(t, err, &forbiddenErr)
		assert.Equal(t, editwindow.ReasonWindowExpired, forbiddenErr.Reason)

		republished, err := svc.PublishPost(ctx, draft.ID, "alice")
		require.NoError(t, err)

		ok, err = svc.CanEditPost(ctx, "alice", republished.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing post", func(t *testing.T) {
		ok, err := svc.CanEditPost(ctx, "alice", "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestService_ListPosts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "alice", Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: "bob", Title: "t", Content: "c", Publish: true})
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, contents.ListPostsParams{Status: contents.StatusPublished})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "bob", posts[0].AuthorID)

	posts, err = svc.ListPosts(ctx, contents.ListPostsParams{AuthorID: "alice"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
}
