package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/tribune/users"
)

const tableUsers = "users"

type UserRepository struct {
	db *DB
}

var _ users.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userFieldID             = "id"
	userFieldUsername       = "username"
	userFieldPasswordHash   = "password_hash"
	userFieldRating         = "rating"
	userFieldCommentsCount  = "comments_count"
	userFieldVotesUpCount   = "votes_up_count"
	userFieldVotesDownCount = "votes_down_count"
	userFieldRegisteredAt   = "registered_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldUsername,
		userFieldPasswordHash,
		userFieldRating,
		userFieldCommentsCount,
		userFieldVotesUpCount,
		userFieldVotesDownCount,
		userFieldRegisteredAt,
	}
}

func scanUser(row sq.RowScanner) (*users.User, error) {
	var user users.User

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Rating,
		&user.CommentsCount,
		&user.VotesUpCount,
		&user.VotesDownCount,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &user, nil
}

func (repo *UserRepository) Insert(ctx context.Context, user *users.User) error {
	q := repo.db.builder().
		Insert(tableUsers).
		Columns(userColumns()...).
		Values(
			user.ID,
			user.Username,
			user.PasswordHash,
			int64(user.Rating),
			user.CommentsCount,
			user.VotesUpCount,
			user.VotesDownCount,
			user.RegisteredAt.UTC(),
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &users.UserAlreadyExistsError{Username: user.Username}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *UserRepository) Find(ctx context.Context, userID string) (*users.User, error) {
	q := repo.db.builder().
		Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldID: userID})

	q = q.RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &users.UserNotFoundError{ID: userID}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	q := repo.db.builder().
		Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldUsername: username})

	q = q.RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &users.UserByUsernameNotFoundError{Username: username}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	q := repo.db.builder().
		Select(userFieldUsername).
		From(tableUsers).
		RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query usernames: %w", err)
	}

	defer closeRows(ctx, rows)

	usernames := make([]string, 0)

	for rows.Next() {
		var username string

		err := rows.Scan(&username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}

		usernames = append(usernames, username)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate usernames: %w", err)
	}

	return usernames, nil
}
