package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/tribune/contents"
	"github.com/nasermirzaei89/tribune/ratings"
)

const (
	tablePostVotes    = "post_votes"
	tableCommentVotes = "comment_votes"
)

const (
	voteFieldVoterID   = "voter_id"
	voteFieldValue     = "value"
	voteFieldCreatedAt = "created_at"
)

// VoteStore runs vote transitions in a database transaction.
type VoteStore struct {
	db *DB
}

var _ ratings.Store = (*VoteStore)(nil)

func NewVoteStore(db *DB) *VoteStore {
	return &VoteStore{db: db}
}

func (store *VoteStore) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, tx ratings.StoreTx) error,
) error {
	return store.db.inTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &voteTx{tx: tx, sb: store.db.builder()})
	})
}

type voteTx struct {
	tx *sql.Tx
	sb sq.StatementBuilderType
}

var _ ratings.StoreTx = (*voteTx)(nil)

// voteTable returns the vote table of the entity type and its entity id column.
func voteTable(entityType ratings.EntityType) (table, entityField string, err error) {
	switch entityType {
	case ratings.EntityTypePost:
		return tablePostVotes, "post_id", nil
	case ratings.EntityTypeComment:
		return tableCommentVotes, "comment_id", nil
	default:
		return "", "", &ratings.InvalidEntityTypeError{EntityType: entityType}
	}
}

func entityTable(entityType ratings.EntityType) (string, error) {
	switch entityType {
	case ratings.EntityTypePost:
		return tablePosts, nil
	case ratings.EntityTypeComment:
		return tableComments, nil
	default:
		return "", &ratings.InvalidEntityTypeError{EntityType: entityType}
	}
}

func (vtx *voteTx) FindEntity(
	ctx context.Context,
	entityType ratings.EntityType,
	entityID string,
) (*ratings.Entity, error) {
	var q sq.SelectBuilder

	switch entityType {
	case ratings.EntityTypePost:
		q = vtx.sb.
			Select(
				postFieldAuthorID,
				postFieldStatus,
				postFieldVotesUpCount,
				postFieldVotesDownCount,
				postFieldRating,
			).
			From(tablePosts).
			Where(sq.Eq{postFieldID: entityID})
	case ratings.EntityTypeComment:
		q = vtx.sb.
			Select(
				"c."+commentFieldAuthorID,
				"p."+postFieldStatus,
				"c."+commentFieldVotesUpCount,
				"c."+commentFieldVotesDownCount,
				"c."+commentFieldRating,
			).
			From(tableComments + " c").
			Join(tablePosts + " p ON p." + postFieldID + " = c." + commentFieldPostID).
			Where(sq.Eq{"c." + commentFieldID: entityID})
	default:
		return nil, &ratings.InvalidEntityTypeError{EntityType: entityType}
	}

	entity := ratings.Entity{Type: entityType, ID: entityID}

	var postStatus contents.Status

	err := q.RunWith(vtx.tx).QueryRowContext(ctx).Scan(
		&entity.AuthorID,
		&postStatus,
		&entity.Counters.VotesUpCount,
		&entity.Counters.VotesDownCount,
		&entity.Counters.Rating,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ratings.EntityNotFoundError{EntityType: entityType, EntityID: entityID}
		}

		return nil, fmt.Errorf("failed to scan %s: %w", entityType, err)
	}

	if entityType == ratings.EntityTypePost {
		entity.Votable = postStatus == contents.StatusPublished
	} else {
		entity.Votable = postStatus != contents.StatusDeleted
	}

	return &entity, nil
}

func (vtx *voteTx) FindVote(
	ctx context.Context,
	entityType ratings.EntityType,
	entityID string,
	voterID string,
) (*ratings.Vote, error) {
	table, entityField, err := voteTable(entityType)
	if err != nil {
		return nil, err
	}

	vote := ratings.Vote{EntityType: entityType, EntityID: entityID, VoterID: voterID}

	var value int

	err = vtx.sb.
		Select(voteFieldValue, voteFieldCreatedAt).
		From(table).
		Where(sq.Eq{entityField: entityID, voteFieldVoterID: voterID}).
		RunWith(vtx.tx).
		QueryRowContext(ctx).
		Scan(&value, &vote.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ratings.VoteNotFoundError{EntityType: entityType, EntityID: entityID, VoterID: voterID}
		}

		return nil, fmt.Errorf("failed to scan vote: %w", err)
	}

	vote.Value, err = ratings.ParseValue(value)
	if err != nil {
		return nil, fmt.Errorf("stored vote is invalid: %w", err)
	}

	return &vote, nil
}

func (vtx *voteTx) InsertVote(ctx context.Context, vote *ratings.Vote) error {
	table, entityField, err := voteTable(vote.EntityType)
	if err != nil {
		return err
	}

	_, err = vtx.sb.
		Insert(table).
		Columns(entityField, voteFieldVoterID, voteFieldValue, voteFieldCreatedAt).
		Values(vote.EntityID, vote.VoterID, int(vote.Value), vote.CreatedAt.UTC()).
		RunWith(vtx.tx).
		ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ratings.ErrVoteConflict
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (vtx *voteTx) DeleteVote(
	ctx context.Context,
	entityType ratings.EntityType,
	entityID string,
	voterID string,
) error {
	table, entityField, err := voteTable(entityType)
	if err != nil {
		return err
	}

	res, err := vtx.sb.
		Delete(table).
		Where(sq.Eq{entityField: entityID, voteFieldVoterID: voterID}).
		RunWith(vtx.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	// another transaction removed the vote after FindVote saw it
	if affected == 0 {
		return ratings.ErrVoteConflict
	}

	return nil
}

func (vtx *voteTx) AddToEntity(
	ctx context.Context,
	entityType ratings.EntityType,
	entityID string,
	delta ratings.Delta,
) error {
	table, err := entityTable(entityType)
	if err != nil {
		return err
	}

	return vtx.increment(ctx, table, entityID, map[string]int64{
		postFieldVotesUpCount:   delta.VotesUp,
		postFieldVotesDownCount: delta.VotesDown,
		postFieldRating:         int64(delta.Rating),
	})
}

func (vtx *voteTx) AddToAuthorRating(ctx context.Context, authorID string, delta ratings.Score) error {
	return vtx.increment(ctx, tableUsers, authorID, map[string]int64{
		userFieldRating: int64(delta),
	})
}

func (vtx *voteTx) AddToVoterCounts(ctx context.Context, voterID string, delta ratings.Delta) error {
	return vtx.increment(ctx, tableUsers, voterID, map[string]int64{
		userFieldVotesUpCount:   delta.VotesUp,
		userFieldVotesDownCount: delta.VotesDown,
	})
}

// increment adds the non zero deltas to the columns of one row, evaluated by the database.
func (vtx *voteTx) increment(ctx context.Context, table, id string, deltas map[string]int64) error {
	clauses := make(map[string]any, len(deltas))

	for column, delta := range deltas {
		if delta == 0 {
			continue
		}

		clauses[column] = sq.Expr(column+" + ?", delta)
	}

	if len(clauses) == 0 {
		return nil
	}

	res, err := vtx.sb.
		Update(table).
		SetMap(clauses).
		Where(sq.Eq{"id": id}).
		RunWith(vtx.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("row %q not found in %s", id, table)
	}

	return nil
}
