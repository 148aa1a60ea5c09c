package tribune_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/tribune"
	"github.com/nasermirzaei89/tribune/contents"
	"github.com/nasermirzaei89/tribune/db/sqlstore"
	"github.com/nasermirzaei89/tribune/discuss"
	"github.com/nasermirzaei89/tribune/ratings"
	"github.com/nasermirzaei89/tribune/users"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := tribune.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, tribune.DefaultConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DB_DIALECT", "postgres")
		t.Setenv("DB_DSN", "postgres://localhost/tribune")
		t.Setenv("POSTS_EDITABLE_WINDOW_MINUTES", "30")
		t.Setenv("COMMENTS_EDITABLE_WINDOW_MINUTES", "5")
		t.Setenv("COMMENT_RATING_MULTIPLIER", "0.25")
		t.Setenv("COMMENTS_TREE_DEFAULT_LEVEL", "4")
		t.Setenv("VOTE_REPEAT_POLICY", "reject")
		t.Setenv("VOTE_ALLOW_SELF", "true")

		cfg, err := tribune.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, sqlstore.DialectPostgres, cfg.DBDialect)
		assert.Equal(t, "postgres://localhost/tribune", cfg.DBDSN)
		assert.Equal(t, 30*time.Minute, cfg.EditWindow.PostWindow)
		assert.Equal(t, 5*time.Minute, cfg.EditWindow.CommentWindow)
		assert.InDelta(t, 0.25, cfg.Ratings.CommentMultiplier, 1e-9)
		assert.Equal(t, 4, cfg.Discuss.DefaultDepth)
		assert.Equal(t, ratings.RepeatReject, cfg.Ratings.RepeatPolicy)
		assert.True(t, cfg.Ratings.AllowSelfVote)
	})

	invalid := map[string]string{
		"DB_DIALECT":                       "mysql",
		"POSTS_EDITABLE_WINDOW_MINUTES":    "-1",
		"COMMENTS_EDITABLE_WINDOW_MINUTES": "soon",
		"COMMENT_RATING_MULTIPLIER":        "-0.5",
		"COMMENTS_TREE_DEFAULT_LEVEL":      "deep",
		"VOTE_REPEAT_POLICY":               "ignore",
	}

	t.Run("multiplier finer than a rating unit", func(t *testing.T) {
		t.Setenv("COMMENT_RATING_MULTIPLIER", "0.3333")

		_, err := tribune.LoadConfig()

		var configErr *tribune.InvalidConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "COMMENT_RATING_MULTIPLIER", configErr.Key)
	})

	for key, value := range invalid {
		t.Run("invalid "+key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := tribune.LoadConfig()
			require.Error(t, err)

			var configErr *tribune.InvalidConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, key, configErr.Key)
		})
	}
}

func newTestApp(t *testing.T) *tribune.App {
	t.Helper()

	cfg := tribune.DefaultConfig()
	cfg.DBDSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"

	app, err := tribune.NewApp(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, app.Close())
	})

	return app
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	alice, err := app.Users.Register(ctx, users.RegisterRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	bob, err := app.Users.Register(ctx, users.RegisterRequest{Username: "bob", Password: "battery-staple"})
	require.NoError(t, err)

	ok, err := app.Users.CheckPassword(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	post, err := app.Contents.CreatePost(ctx, contents.CreatePostRequest{
		AuthorID: alice.ID,
		Title:    "First",
		Content:  "hello",
		Publish:  true,
	})
	require.NoError(t, err)

	comment, err := app.Discuss.CreateComment(ctx, discuss.CreateCommentRequest{
		PostID:   post.ID,
		AuthorID: bob.ID,
		Content:  "welcome",
	})
	require.NoError(t, err)

	_, err = app.Discuss.CreateComment(ctx, discuss.CreateCommentRequest{
		PostID:   post.ID,
		ParentID: comment.ID,
		AuthorID: alice.ID,
		Content:  "thanks",
	})
	require.NoError(t, err)

	tally, err := app.Ratings.CastVote(ctx, ratings.CastVoteRequest{
		EntityType: ratings.EntityTypeComment,
		EntityID:   comment.ID,
		VoterID:    alice.ID,
		Value:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, ratings.ScoreFromFloat(1), tally.Rating)

	author, err := app.Users.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ratings.ScoreFromFloat(0.5), author.Rating)
	assert.EqualValues(t, 1, author.CommentsCount)

	assert.InDelta(t, 1, testutil.ToFloat64(app.Metrics.CommentsCreatedTotal.WithLabelValues("root")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(app.Metrics.CommentsCreatedTotal.WithLabelValues("reply")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(app.Metrics.VotesTotal.WithLabelValues("comment", "cast")), 1e-9)

	count, err := testutil.GatherAndCount(app.Registry)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestNewApp_InvalidDialect(t *testing.T) {
	cfg := tribune.DefaultConfig()
	cfg.DBDialect = "oracle"

	_, err := tribune.NewApp(context.Background(), cfg)
	require.Error(t, err)
}
