package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type EntityType string

const (
	EntityTypePost    EntityType = "post"
	EntityTypeComment EntityType = "comment"
)

func (entityType EntityType) IsValid() bool {
	switch entityType {
	case EntityTypePost, EntityTypeComment:
		return true
	default:
		return false
	}
}

// Value is the direction of a vote. Only Upvote and Downvote exist.
type Value int8

const (
	Upvote   Value = 1
	Downvote Value = -1
)

func ParseValue(value int) (Value, error) {
	switch value {
	case int(Upvote):
		return Upvote, nil
	case int(Downvote):
		return Downvote, nil
	default:
		return 0, &InvalidVoteValueError{Value: value}
	}
}

func (value Value) IsUp() bool {
	return value == Upvote
}

// Weight is the raw rating contribution of the vote before any entity type multiplier.
func (value Value) Weight() float64 {
	if value.IsUp() {
		return 1
	}

	return -1
}

func (value Value) Opposite() Value {
	if value.IsUp() {
		return Downvote
	}

	return Upvote
}

func (value Value) String() string {
	if value.IsUp() {
		return "up"
	}

	return "down"
}

type Vote struct {
	EntityType EntityType
	EntityID   string
	VoterID    string
	Value      Value
	CreatedAt  time.Time
}

// Entity is the votable side of a vote: a post or a comment with its aggregate counters.
type Entity struct {
	Type     EntityType
	ID       string
	AuthorID string
	// Votable is false for posts that are not published and for comments on deleted posts.
	Votable  bool
	Counters Counters
}

// Store runs a vote transition atomically.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) (err error)
}

// StoreTx is the set of operations available inside one vote transaction. Every Add method must be
// evaluated by the store itself (UPDATE ... SET x = x + ?), never read-modify-write in process.
type StoreTx interface {
	FindEntity(ctx context.Context, entityType EntityType, entityID string) (entity *Entity, err error)
	FindVote(ctx context.Context, entityType EntityType, entityID string, voterID string) (vote *Vote, err error)
	InsertVote(ctx context.Context, vote *Vote) (err error)
	DeleteVote(ctx context.Context, entityType EntityType, entityID string, voterID string) (err error)
	AddToEntity(ctx context.Context, entityType EntityType, entityID string, delta Delta) (err error)
	AddToAuthorRating(ctx context.Context, authorID string, delta Score) (err error)
	AddToVoterCounts(ctx context.Context, voterID string, delta Delta) (err error)
}

// ErrVoteConflict is returned by StoreTx.InsertVote when the (entity, voter) pair already has a
// vote, and by StoreTx.DeleteVote when the vote is already gone. Both only happen when another
// transaction won a race for the pair.
var ErrVoteConflict = errors.New("vote for entity and voter changed concurrently")

type VoteNotFoundError struct {
	EntityType EntityType
	EntityID   string
	VoterID    string
}

func (err VoteNotFoundError) Error() string {
	return fmt.Sprintf("vote of user %q on %s:%q not found", err.VoterID, err.EntityType, err.EntityID)
}

type EntityNotFoundError struct {
	EntityType EntityType
	EntityID   string
}

func (err EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found", err.EntityType, err.EntityID)
}

type InvalidEntityTypeError struct {
	EntityType EntityType
}

func (err InvalidEntityTypeError) Error() string {
	return fmt.Sprintf("invalid entity type: %q", err.EntityType)
}

type InvalidVoteValueError struct {
	Value int
}

func (err InvalidVoteValueError) Error() string {
	return fmt.Sprintf("invalid vote value %d; allowed: 1, -1", err.Value)
}

type SelfVoteError struct {
	EntityType EntityType
	EntityID   string
	VoterID    string
}

func (err SelfVoteError) Error() string {
	return fmt.Sprintf("user %q cannot vote for own %s %q", err.VoterID, err.EntityType, err.EntityID)
}

type DuplicateVoteError struct {
	EntityType EntityType
	EntityID   string
	VoterID    string
	Value      Value
}

func (err DuplicateVoteError) Error() string {
	return fmt.Sprintf(
		"user %q already voted %s on %s %q",
		err.VoterID,
		err.Value,
		err.EntityType,
		err.EntityID,
	)
}
