package editwindow_test

import (
	"testing"
	"time"

	"github.com/nasermirzaei89/tribune/editwindow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Check(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		start := now.Add(-d)

		return &start
	}

	policy, err := editwindow.NewPolicy(
		editwindow.Config{PostWindow: time.Hour, CommentWindow: 15 * time.Minute},
		editwindow.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actorID string
		subject editwindow.Subject
		reason  editwindow.Reason
	}{
		{
			name:    "fresh comment by author",
			actorID: "alice",
			subject: editwindow.Subject{Kind: editwindow.KindComment, ID: "c1", AuthorID: "alice", WindowStart: ago(time.Minute)},
		},
		{
			name:    "comment at window end",
			actorID: "alice",
			subject: editwindow.Subject{Kind: editwindow.KindComment, ID: "c1", AuthorID: "alice", WindowStart: ago(15 * time.Minute)},
		},
		{
			name:    "comment after window",
			actorID: "alice",
			subject: editwindow.Subject{Kind: editwindow.KindComment, ID: "c1", AuthorID: "alice", WindowStart: ago(16 * time.Minute)},
			reason:  editwindow.ReasonWindowExpired,
		},
		{
			name:    "voted comment",
			actorID: "alice",
			subject: editwindow.Subject{
				Kind:        editwindow.KindComment,
				ID:          "c1",
				AuthorID:    "alice",
				Frozen:      true,
				WindowStart: ago(0),
			},
			reason: editwindow.ReasonFrozen,
		},
		{
			name:    "someone else",
			actorID: "bob",
			subject: editwindow.Subject{Kind: editwindow.KindComment, ID: "c1", AuthorID: "alice", WindowStart: ago(0)},
			reason:  editwindow.ReasonNotAuthor,
		},
		{
			name:    "anonymous",
			actorID: "",
			subject: editwindow.Subject{Kind: editwindow.KindPost, ID: "p1", AuthorID: ""},
			reason:  editwindow.ReasonNotAuthor,
		},
		{
			name:    "draft post is always editable",
			actorID: "alice",
			subject: editwindow.Subject{Kind: editwindow.KindPost, ID: "p1", AuthorID: "alice"},
		},
		{
			name:    "published post within its own window",
			actorID: "alice",
			subject: editwindow.Subject{Kind: editwindow.KindPost, ID: "p1", AuthorID: "alice", WindowStart: ago(59 * time.Minute)},
		},
		{
			name:    "published post after window",
			actorID: "alice",
			subject: editwindow.Subject{Kind: editwindow.KindPost, ID: "p1", AuthorID: "alice", WindowStart: ago(2 * time.Hour)},
			reason:  editwindow.ReasonWindowExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := policy.Check(tt.actorID, tt.subject)

			if tt.reason == "" {
				require.NoError(t, err)
				assert.True(t, policy.CanEdit(tt.actorID, tt.subject))

				return
			}

			require.Error(t, err)

			forbiddenErr := &editwindow.EditForbiddenError{}
			require.ErrorAs(t, err, &forbiddenErr)
			assert.Equal(t, tt.reason, forbiddenErr.Reason)
			assert.Equal(t, tt.subject.Kind, forbiddenErr.Kind)
			assert.False(t, policy.CanEdit(tt.actorID, tt.subject))
		})
	}
}

func TestNewPolicy_NegativeWindow(t *testing.T) {
	t.Parallel()

	_, err := editwindow.NewPolicy(editwindow.Config{PostWindow: -time.Minute})
	require.Error(t, err)

	_, err = editwindow.NewPolicy(editwindow.Config{CommentWindow: -time.Minute})
	require.Error(t, err)
}
