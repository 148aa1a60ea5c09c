package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/tribune/contents"
)

const tablePosts = "posts"

type PostRepository struct {
	db *DB
}

var _ contents.PostRepository = (*PostRepository)(nil)

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

const (
	postFieldID             = "id"
	postFieldAuthorID       = "author_id"
	postFieldCommunityID    = "community_id"
	postFieldTitle          = "title"
	postFieldContent        = "content"
	postFieldContentHTML    = "content_html"
	postFieldStatus         = "status"
	postFieldPublishedAt    = "published_at"
	postFieldCommentsCount  = "comments_count"
	postFieldVotesUpCount   = "votes_up_count"
	postFieldVotesDownCount = "votes_down_count"
	postFieldRating         = "rating"
	postFieldCreatedAt      = "created_at"
	postFieldUpdatedAt      = "updated_at"
)

func postColumns() []string {
	return []string{
		postFieldID,
		postFieldAuthorID,
		postFieldCommunityID,
		postFieldTitle,
		postFieldContent,
		postFieldContentHTML,
		postFieldStatus,
		postFieldPublishedAt,
		postFieldCommentsCount,
		postFieldVotesUpCount,
		postFieldVotesDownCount,
		postFieldRating,
		postFieldCreatedAt,
		postFieldUpdatedAt,
	}
}

func scanPost(row sq.RowScanner) (*contents.Post, error) {
	var post contents.Post

	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.CommunityID,
		&post.Title,
		&post.Content,
		&post.ContentHTML,
		&post.Status,
		&post.PublishedAt,
		&post.CommentsCount,
		&post.VotesUpCount,
		&post.VotesDownCount,
		&post.Rating,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &post, nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	utc := t.UTC()

	return &utc
}

func (repo *PostRepository) Insert(ctx context.Context, post *contents.Post) error {
	q := repo.db.builder().
		Insert(tablePosts).
		Columns(postColumns()...).
		Values(
			post.ID,
			post.AuthorID,
			post.CommunityID,
			post.Title,
			post.Content,
			post.ContentHTML,
			string(post.Status),
			utcOrNil(post.PublishedAt),
			post.CommentsCount,
			post.VotesUpCount,
			post.VotesDownCount,
			int64(post.Rating),
			post.CreatedAt.UTC(),
			post.UpdatedAt.UTC(),
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *PostRepository) Find(ctx context.Context, postID string) (*contents.Post, error) {
	q := repo.db.builder().
		Select(postColumns()...).
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID})

	q = q.RunWith(repo.db)

	post, err := scanPost(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &contents.PostNotFoundError{ID: postID}
		}

		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	return post, nil
}

func (repo *PostRepository) List(ctx context.Context, params contents.ListPostsParams) ([]*contents.Post, error) {
	query := repo.db.builder().
		Select(postColumns()...).
		From(tablePosts).
		OrderBy(postFieldCreatedAt+" DESC", postFieldID+" DESC")

	if params.AuthorID != "" {
		query = query.Where(sq.Eq{postFieldAuthorID: params.AuthorID})
	}

	if params.CommunityID != "" {
		query = query.Where(sq.Eq{postFieldCommunityID: params.CommunityID})
	}

	if params.Status != "" {
		query = query.Where(sq.Eq{postFieldStatus: string(params.Status)})
	}

	query = query.RunWith(repo.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer closeRows(ctx, rows)

	posts := make([]*contents.Post, 0)

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post failed: %w", err)
		}

		posts = append(posts, post)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return posts, nil
}

func (repo *PostRepository) UpdateContent(ctx context.Context, post *contents.Post) error {
	q := repo.db.builder().
		Update(tablePosts).
		Set(postFieldTitle, post.Title).
		Set(postFieldContent, post.Content).
		Set(postFieldContentHTML, post.ContentHTML).
		Set(postFieldUpdatedAt, post.UpdatedAt.UTC()).
		Where(sq.Eq{postFieldID: post.ID})

	q = q.RunWith(repo.db)

	res, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return &contents.PostNotFoundError{ID: post.ID}
	}

	return nil
}

func (repo *PostRepository) UpdateStatus(
	ctx context.Context,
	postID string,
	from []contents.Status,
	to contents.Status,
	at time.Time,
) (bool, error) {
	fromValues := make([]string, 0, len(from))
	for _, status := range from {
		fromValues = append(fromValues, string(status))
	}

	at = at.UTC()

	q := repo.db.builder().
		Update(tablePosts).
		Set(postFieldStatus, string(to)).
		Set(postFieldUpdatedAt, at).
		Where(sq.Eq{postFieldID: postID, postFieldStatus: fromValues})

	if to == contents.StatusPublished {
		q = q.Set(postFieldPublishedAt, sq.Expr("COALESCE("+postFieldPublishedAt+", ?)", at))
	}

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
