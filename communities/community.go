package communities

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (status Status) IsValid() bool {
	switch status {
	case StatusOpen, StatusClosed:
		return true
	default:
		return false
	}
}

type Community struct {
	ID          string
	Name        string
	Description string
	// OwnerID is nil once the owner account is gone.
	OwnerID   *string
	Status    Status
	CreatedAt time.Time
}

type CommunityRepository interface {
	Insert(ctx context.Context, community *Community) (err error)
	Find(ctx context.Context, communityID string) (community *Community, err error)
	FindByName(ctx context.Context, name string) (community *Community, err error)
	List(ctx context.Context) (communities []*Community, err error)
}

type CommunityNotFoundError struct {
	ID string
}

func (err CommunityNotFoundError) Error() string {
	return fmt.Sprintf("community with id %q not found", err.ID)
}

type CommunityByNameNotFoundError struct {
	Name string
}

func (err CommunityByNameNotFoundError) Error() string {
	return fmt.Sprintf("community with name %q not found", err.Name)
}

type CommunityAlreadyExistsError struct {
	Name string
}

func (err CommunityAlreadyExistsError) Error() string {
	return fmt.Sprintf("community with name %q already exists", err.Name)
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
