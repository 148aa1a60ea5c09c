// Package editwindow decides whether an actor may still change the content of a post or a comment.
package editwindow

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Subject is the part of a post or comment the policy looks at.
type Subject struct {
	Kind     Kind
	ID       string
	AuthorID string
	// Frozen is set when the content can never change again, e.g. a comment that received a vote.
	Frozen bool
	// WindowStart is nil when no time limit applies yet, e.g. a draft post.
	WindowStart *time.Time
}

type Reason string

const (
	ReasonNotAuthor     Reason = "not_author"
	ReasonFrozen        Reason = "frozen"
	ReasonWindowExpired Reason = "window_expired"
)

type EditForbiddenError struct {
	Kind   Kind
	ID     string
	Reason Reason
}

func (err EditForbiddenError) Error() string {
	return fmt.Sprintf("editing %s %q is forbidden: %s", err.Kind, err.ID, err.Reason)
}

const (
	DefaultPostWindow    = 60 * time.Minute
	DefaultCommentWindow = 15 * time.Minute
)

type Config struct {
	PostWindow    time.Duration
	CommentWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		PostWindow:    DefaultPostWindow,
		CommentWindow: DefaultCommentWindow,
	}
}

type Policy struct {
	cfg Config
	now func() time.Time
}

type Option func(policy *Policy)

func WithClock(now func() time.Time) Option {
	return func(policy *Policy) {
		policy.now = now
	}
}

func NewPolicy(cfg Config, opts ...Option) (*Policy, error) {
	if cfg.PostWindow < 0 {
		return nil, fmt.Errorf("invalid post edit window: %s", cfg.PostWindow)
	}

	if cfg.CommentWindow < 0 {
		return nil, fmt.Errorf("invalid comment edit window: %s", cfg.CommentWindow)
	}

	policy := &Policy{
		cfg: cfg,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(policy)
	}

	return policy, nil
}

func (policy *Policy) Window(kind Kind) time.Duration {
	if kind == KindComment {
		return policy.cfg.CommentWindow
	}

	return policy.cfg.PostWindow
}

// Check returns nil when actorID may edit subject now. The window is inclusive at its end.
func (policy *Policy) Check(actorID string, subject Subject) error {
	if actorID == "" || actorID != subject.AuthorID {
		return &EditForbiddenError{Kind: subject.Kind, ID: subject.ID, Reason: ReasonNotAuthor}
	}

	if subject.Frozen {
		return &EditForbiddenError{Kind: subject.Kind, ID: subject.ID, Reason: ReasonFrozen}
	}

	if subject.WindowStart == nil {
		return nil
	}

	if policy.now().Sub(*subject.WindowStart) > policy.Window(subject.Kind) {
		return &EditForbiddenError{Kind: subject.Kind, ID: subject.ID, Reason: ReasonWindowExpired}
	}

	return nil
}

func (policy *Policy) CanEdit(actorID string, subject Subject) bool {
	return policy.Check(actorID, subject) == nil
}
