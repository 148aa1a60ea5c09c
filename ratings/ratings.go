package ratings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RepeatPolicy decides what casting the same vote twice means.
type RepeatPolicy string

const (
	// RepeatCancel removes the existing vote.
	RepeatCancel RepeatPolicy = "cancel"
	// RepeatReject fails with DuplicateVoteError.
	RepeatReject RepeatPolicy = "reject"
)

func (policy RepeatPolicy) IsValid() bool {
	switch policy {
	case RepeatCancel, RepeatReject:
		return true
	default:
		return false
	}
}

type Config struct {
	CommentMultiplier float64
	RepeatPolicy      RepeatPolicy
	AllowSelfVote     bool
}

func DefaultConfig() Config {
	return Config{
		CommentMultiplier: DefaultCommentMultiplier,
		RepeatPolicy:      RepeatCancel,
		AllowSelfVote:     false,
	}
}

type Transition string

const (
	TransitionCast   Transition = "cast"
	TransitionCancel Transition = "cancel"
	TransitionFlip   Transition = "flip"
)

// Observer receives every committed transition and every retried conflict.
type Observer interface {
	ObserveVote(entityType EntityType, transition Transition)
	ObserveVoteConflict(entityType EntityType)
}

type nopObserver struct{}

func (nopObserver) ObserveVote(EntityType, Transition) {}

func (nopObserver) ObserveVoteConflict(EntityType) {}

// maxConflictRetries is how many times a transaction that lost the insert race is replayed.
const maxConflictRetries = 1

type Service struct {
	store    Store
	ledger   Ledger
	cfg      Config
	observer Observer
	now      func() time.Time
}

type Option func(svc *Service)

func WithObserver(observer Observer) Option {
	return func(svc *Service) {
		svc.observer = observer
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(store Store, cfg Config, opts ...Option) (*Service, error) {
	if !cfg.RepeatPolicy.IsValid() {
		return nil, fmt.Errorf("invalid repeat vote policy: %q", cfg.RepeatPolicy)
	}

	ledger, err := NewLedger(cfg.CommentMultiplier)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	svc := &Service{
		store:    store,
		ledger:   ledger,
		cfg:      cfg,
		observer: nopObserver{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

func (svc *Service) Ledger() Ledger {
	return svc.ledger
}

type CastVoteRequest struct {
	EntityType EntityType
	EntityID   string
	VoterID    string
	Value      int
}

// Tally is the state of the entity right after a vote transition.
type Tally struct {
	EntityType     EntityType
	EntityID       string
	VotesUpCount   int64
	VotesDownCount int64
	Rating         Score
	Transition     Transition
	// Current is the vote of the voter after the transition, nil when it was cancelled.
	Current *Value
}

func (svc *Service) CastVote(ctx context.Context, req CastVoteRequest) (*Tally, error) {
	if !req.EntityType.IsValid() {
		return nil, &InvalidEntityTypeError{EntityType: req.EntityType}
	}

	value, err := ParseValue(req.Value)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		tally, err := svc.castVote(ctx, req, value)
		if err == nil {
			svc.observer.ObserveVote(req.EntityType, tally.Transition)

			slog.DebugContext(
				ctx,
				"vote recorded",
				"entityType", req.EntityType,
				"entityID", req.EntityID,
				"voterID", req.VoterID,
				"transition", tally.Transition,
			)

			return tally, nil
		}

		if !errors.Is(err, ErrVoteConflict) || attempt >= maxConflictRetries {
			return nil, err
		}

		svc.observer.ObserveVoteConflict(req.EntityType)

		slog.WarnContext(
			ctx,
			"vote conflict, retrying",
			"entityType", req.EntityType,
			"entityID", req.EntityID,
			"voterID", req.VoterID,
			"attempt", attempt+1,
		)
	}
}

func (svc *Service) castVote(ctx context.Context, req CastVoteRequest, value Value) (*Tally, error) {
	var tally *Tally

	err := svc.store.WithinTx(ctx, func(ctx context.Context, tx StoreTx) error {
		entity, err := tx.FindEntity(ctx, req.EntityType, req.EntityID)
		if err != nil {
			return fmt.Errorf("failed to find entity: %w", err)
		}

		if !entity.Votable {
			return &EntityNotFoundError{EntityType: req.EntityType, EntityID: req.EntityID}
		}

		if entity.AuthorID == req.VoterID && !svc.cfg.AllowSelfVote {
			return &SelfVoteError{EntityType: req.EntityType, EntityID: req.EntityID, VoterID: req.VoterID}
		}

		existing, err := tx.FindVote(ctx, req.EntityType, req.EntityID, req.VoterID)
		if err != nil {
			var notFoundErr *VoteNotFoundError
			if !errors.As(err, &notFoundErr) {
				return fmt.Errorf("failed to find existing vote: %w", err)
			}

			existing = nil
		}

		var (
			transition Transition
			current    *Value
		)

		switch {
		case existing == nil:
			err = svc.addVote(ctx, tx, entity, req.VoterID, value)
			transition = TransitionCast
			current = &value
		case existing.Value == value:
			if svc.cfg.RepeatPolicy == RepeatReject {
				return &DuplicateVoteError{
					EntityType: req.EntityType,
					EntityID:   req.EntityID,
					VoterID:    req.VoterID,
					Value:      value,
				}
			}

			err = svc.removeVote(ctx, tx, entity, existing)
			transition = TransitionCancel
		default:
			err = svc.removeVote(ctx, tx, entity, existing)
			if err != nil {
				return err
			}

			err = svc.addVote(ctx, tx, entity, req.VoterID, value)
			transition = TransitionFlip
			current = &value
		}

		if err != nil {
			return err
		}

		fresh, err := tx.FindEntity(ctx, req.EntityType, req.EntityID)
		if err != nil {
			return fmt.Errorf("failed to reload entity: %w", err)
		}

		tally = &Tally{
			EntityType:     fresh.Type,
			EntityID:       fresh.ID,
			VotesUpCount:   fresh.Counters.VotesUpCount,
			VotesDownCount: fresh.Counters.VotesDownCount,
			Rating:         fresh.Counters.Rating,
			Transition:     transition,
			Current:        current,
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	return tally, nil
}

func (svc *Service) addVote(ctx context.Context, tx StoreTx, entity *Entity, voterID string, value Value) error {
	vote := &Vote{
		EntityType: entity.Type,
		EntityID:   entity.ID,
		VoterID:    voterID,
		Value:      value,
		CreatedAt:  svc.now().UTC(),
	}

	err := tx.InsertVote(ctx, vote)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	return svc.applyDeltas(ctx, tx, entity, voterID, value, false)
}

func (svc *Service) removeVote(ctx context.Context, tx StoreTx, entity *Entity, vote *Vote) error {
	err := tx.DeleteVote(ctx, entity.Type, entity.ID, vote.VoterID)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	return svc.applyDeltas(ctx, tx, entity, vote.VoterID, vote.Value, true)
}

func (svc *Service) applyDeltas(
	ctx context.Context,
	tx StoreTx,
	entity *Entity,
	voterID string,
	value Value,
	revert bool,
) error {
	entityDelta := svc.ledger.EntityDelta(value)
	authorDelta := svc.ledger.AuthorDelta(entity.Type, value)
	voterDelta := svc.ledger.VoterDelta(value)

	if revert {
		entityDelta = entityDelta.Negate()
		authorDelta = -authorDelta
		voterDelta = voterDelta.Negate()
	}

	err := tx.AddToEntity(ctx, entity.Type, entity.ID, entityDelta)
	if err != nil {
		return fmt.Errorf("failed to update %s counters: %w", entity.Type, err)
	}

	err = tx.AddToAuthorRating(ctx, entity.AuthorID, authorDelta)
	if err != nil {
		return fmt.Errorf("failed to update author rating: %w", err)
	}

	err = tx.AddToVoterCounts(ctx, voterID, voterDelta)
	if err != nil {
		return fmt.Errorf("failed to update voter counters: %w", err)
	}

	return nil
}
