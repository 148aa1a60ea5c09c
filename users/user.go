package users

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/tribune/ratings"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	// Rating is the reputation accrued from votes on the user's posts and comments.
	Rating         ratings.Score
	CommentsCount  int64
	VotesUpCount   int64
	VotesDownCount int64
	RegisteredAt   time.Time
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID string) (user *User, err error)
	FindByUsername(ctx context.Context, username string) (user *User, err error)
	ListUsernames(ctx context.Context) (usernames []string, err error)
}

type UserNotFoundError struct {
	ID string
}

func (err UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %q not found", err.ID)
}

type UserByUsernameNotFoundError struct {
	Username string
}

func (err UserByUsernameNotFoundError) Error() string {
	return fmt.Sprintf("user with username %q not found", err.Username)
}

type UserAlreadyExistsError struct {
	Username string
}

func (err UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", err.Username)
}

type InvalidRequestError struct {
	Err error
}

func (err InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", err.Err)
}

func (err InvalidRequestError) Unwrap() error {
	return err.Err
}
