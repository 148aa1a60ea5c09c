package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/tribune/discuss"
)

const tableComments = "comments"

type CommentRepository struct {
	db *DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID             = "id"
	commentFieldPostID         = "post_id"
	commentFieldParentID       = "parent_id"
	commentFieldAuthorID       = "author_id"
	commentFieldLevel          = "level"
	commentFieldPath           = "path"
	commentFieldContent        = "content"
	commentFieldContentHTML    = "content_html"
	commentFieldVotesUpCount   = "votes_up_count"
	commentFieldVotesDownCount = "votes_down_count"
	commentFieldRating         = "rating"
	commentFieldCreatedAt      = "created_at"
	commentFieldUpdatedAt      = "updated_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldPostID,
		commentFieldParentID,
		commentFieldAuthorID,
		commentFieldLevel,
		commentFieldPath,
		commentFieldContent,
		commentFieldContentHTML,
		commentFieldVotesUpCount,
		commentFieldVotesDownCount,
		commentFieldRating,
		commentFieldCreatedAt,
		commentFieldUpdatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var comment discuss.Comment

	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.ParentID,
		&comment.AuthorID,
		&comment.Level,
		&comment.Path,
		&comment.Content,
		&comment.ContentHTML,
		&comment.VotesUpCount,
		&comment.VotesDownCount,
		&comment.Rating,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &comment, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	return repo.db.inTx(ctx, func(tx *sql.Tx) error {
		q := repo.db.builder().
			Insert(tableComments).
			Columns(commentColumns()...).
			Values(
				comment.ID,
				comment.PostID,
				comment.ParentID,
				comment.AuthorID,
				comment.Level,
				comment.Path,
				comment.Content,
				comment.ContentHTML,
				comment.VotesUpCount,
				comment.VotesDownCount,
				int64(comment.Rating),
				comment.CreatedAt.UTC(),
				comment.UpdatedAt.UTC(),
			).
			RunWith(tx)

		_, err := q.ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to exec insert: %w", err)
		}

		err = incrementCommentsCount(ctx, repo.db.builder(), tx, tablePosts, comment.PostID)
		if err != nil {
			return fmt.Errorf("failed to increment post comments count: %w", err)
		}

		err = incrementCommentsCount(ctx, repo.db.builder(), tx, tableUsers, comment.AuthorID)
		if err != nil {
			return fmt.Errorf("failed to increment author comments count: %w", err)
		}

		return nil
	})
}

func incrementCommentsCount(ctx context.Context, sb sq.StatementBuilderType, tx *sql.Tx, table, id string) error {
	res, err := sb.Update(table).
		Set(postFieldCommentsCount, sq.Expr(postFieldCommentsCount+" + 1")).
		Where(sq.Eq{"id": id}).
		RunWith(tx).
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

func (repo *CommentRepository) Find(ctx context.Context, commentID string) (*discuss.Comment, error) {
	q := repo.db.builder().
		Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: commentID})

	q = q.RunWith(repo.db)

	comment, err := scanComment(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &discuss.CommentNotFoundError{ID: commentID}
		}

		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	return comment, nil
}

func (repo *CommentRepository) ListRoots(ctx context.Context, postID string) ([]*discuss.Comment, error) {
	query := repo.db.builder().
		Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: postID, commentFieldParentID: nil})

	return repo.list(ctx, query)
}

func (repo *CommentRepository) ListByPost(
	ctx context.Context,
	postID string,
	maxLevel *int,
) ([]*discuss.Comment, error) {
	query := repo.db.builder().
		Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: postID})

	if maxLevel != nil {
		query = query.Where(sq.LtOrEq{commentFieldLevel: *maxLevel})
	}

	return repo.list(ctx, query)
}

func (repo *CommentRepository) ListDescendants(
	ctx context.Context,
	ancestor *discuss.Comment,
	maxLevel *int,
) ([]*discuss.Comment, error) {
	query := repo.db.builder().
		Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: ancestor.PostID}).
		Where(sq.Like{commentFieldPath: ancestor.Path + "%"}).
		Where(sq.Gt{commentFieldLevel: ancestor.Level})

	if maxLevel != nil {
		query = query.Where(sq.LtOrEq{commentFieldLevel: *maxLevel})
	}

	return repo.list(ctx, query)
}

func (repo *CommentRepository) list(ctx context.Context, query sq.SelectBuilder) ([]*discuss.Comment, error) {
	query = query.
		OrderBy(commentFieldCreatedAt+" ASC", commentFieldID+" ASC").
		RunWith(repo.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer closeRows(ctx, rows)

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment failed: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return comments, nil
}

func (repo *CommentRepository) UpdateContent(ctx context.Context, comment *discuss.Comment) (bool, error) {
	q := repo.db.builder().
		Update(tableComments).
		Set(commentFieldContent, comment.Content).
		Set(commentFieldContentHTML, comment.ContentHTML).
		Set(commentFieldUpdatedAt, comment.UpdatedAt.UTC()).
		Where(sq.Eq{
			commentFieldID:             comment.ID,
			commentFieldVotesUpCount:   0,
			commentFieldVotesDownCount: 0,
		})

	q = q.RunWith(repo.db)

	res, err := q.ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to exec update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}
