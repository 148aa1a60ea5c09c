package communities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Service struct {
	communityRepo CommunityRepository
}

func NewService(communityRepo CommunityRepository) *Service {
	return &Service{
		communityRepo: communityRepo,
	}
}

type CreateCommunityRequest struct {
	Name        string `validate:"required,max=100"`
	Description string
	OwnerID     string
}

func (svc *Service) CreateCommunity(ctx context.Context, req CreateCommunityRequest) (*Community, error) {
	err := validate.Struct(req)
	if err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	_, err = svc.communityRepo.FindByName(ctx, req.Name)
	if err != nil {
		var notFoundErr *CommunityByNameNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to check if community already exists: %w", err)
		}
	} else {
		return nil, &CommunityAlreadyExistsError{Name: req.Name}
	}

	var ownerID *string
	if req.OwnerID != "" {
		ownerID = &req.OwnerID
	}

	community := &Community{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
		Status:      StatusOpen,
		CreatedAt:   time.Now().UTC(),
	}

	err = svc.communityRepo.Insert(ctx, community)
	if err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}

	return community, nil
}

func (svc *Service) GetCommunity(ctx context.Context, communityID string) (*Community, error) {
	community, err := svc.communityRepo.Find(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to find community: %w", err)
	}

	return community, nil
}

func (svc *Service) ListCommunities(ctx context.Context) ([]*Community, error) {
	communities, err := svc.communityRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}

	return communities, nil
}
