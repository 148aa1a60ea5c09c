package contents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nasermirzaei89/tribune/communities"
	"github.com/nasermirzaei89/tribune/editwindow"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CommunityFinder interface {
	GetCommunity(ctx context.Context, communityID string) (*communities.Community, error)
}

type Renderer interface {
	Render(source string) (string, error)
}

type Service struct {
	postRepo    PostRepository
	communities CommunityFinder
	policy      *editwindow.Policy
	renderer    Renderer
	now         func() time.Time
}

type Option func(svc *Service)

func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(
	postRepo PostRepository,
	communities CommunityFinder,
	policy *editwindow.Policy,
	renderer Renderer,
	opts ...Option,
) *Service {
	svc := &Service{
		postRepo:    postRepo,
		communities: communities,
		policy:      policy,
		renderer:    renderer,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

type CreatePostRequest struct {
	AuthorID    string `validate:"required"`
	CommunityID string
	Title       string `validate:"required,max=200"`
	Content     string `validate:"required"`
	// Publish creates the post as published instead of draft.
	Publish bool
}

func (svc *Service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	err := validate.Struct(req)
	if err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	var communityID *string

	if req.CommunityID != "" {
		_, err = svc.communities.GetCommunity(ctx, req.CommunityID)
		if err != nil {
			return nil, fmt.Errorf("failed to get community: %w", err)
		}

		communityID = &req.CommunityID
	}

	contentHTML, err := svc.renderer.Render(req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	timeNow := svc.now().UTC()

	post := &Post{
		ID:          uuid.NewString(),
		AuthorID:    req.AuthorID,
		CommunityID: communityID,
		Title:       req.Title,
		Content:     req.Content,
		ContentHTML: contentHTML,
		Status:      StatusDraft,
		CreatedAt:   timeNow,
		UpdatedAt:   timeNow,
	}

	if req.Publish {
		post.Status = StatusPublished
		post.PublishedAt = &timeNow
	}

	err = svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (svc *Service) GetPost(ctx context.Context, postID string) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

// ListPosts returns the matching posts, newest first.
func (svc *Service) ListPosts(ctx context.Context, params ListPostsParams) ([]*Post, error) {
	posts, err := svc.postRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

// PublishPost moves a draft to published. Publishing a published post returns it unchanged.
func (svc *Service) PublishPost(ctx context.Context, postID, actorID string) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != actorID {
		return nil, &PublishTransitionError{PostID: postID, Status: post.Status, Reason: "not the author"}
	}

	switch post.Status {
	case StatusPublished:
		return post, nil
	case StatusDeleted:
		return nil, &PublishTransitionError{PostID: postID, Status: post.Status, Reason: "post is deleted"}
	case StatusDraft:
	}

	updated, err := svc.postRepo.UpdateStatus(ctx, postID, []Status{StatusDraft}, StatusPublished, svc.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to publish post: %w", err)
	}

	post, err = svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find published post: %w", err)
	}

	if !updated && post.Status != StatusPublished {
		return nil, &PublishTransitionError{PostID: postID, Status: post.Status, Reason: "post is deleted"}
	}

	if updated {
		slog.InfoContext(ctx, "post published", "postID", postID)
	}

	return post, nil
}

// DeletePost marks the post deleted. Deleting a deleted post is a no-op.
func (svc *Service) DeletePost(ctx context.Context, postID, actorID string) error {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != actorID {
		return &DeleteForbiddenError{PostID: postID, ActorID: actorID}
	}

	if post.Status == StatusDeleted {
		return nil
	}

	_, err = svc.postRepo.UpdateStatus(
		ctx,
		postID,
		[]Status{StatusDraft, StatusPublished},
		StatusDeleted,
		svc.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.InfoContext(ctx, "post deleted", "postID", postID)

	return nil
}

type UpdatePostRequest struct {
	PostID  string `validate:"required"`
	ActorID string `validate:"required"`
	Title   string `validate:"required,max=200"`
	Content string `validate:"required"`
}

func (svc *Service) UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	err := validate.Struct(req)
	if err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	post, err := svc.postRepo.Find(ctx, req.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	err = svc.policy.Check(req.ActorID, post.EditSubject())
	if err != nil {
		return nil, err
	}

	contentHTML, err := svc.renderer.Render(req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	post.Title = req.Title
	post.Content = req.Content
	post.ContentHTML = contentHTML
	post.UpdatedAt = svc.now().UTC()

	err = svc.postRepo.UpdateContent(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

func (svc *Service) CanEditPost(ctx context.Context, actorID, postID string) (bool, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		var notFoundErr *PostNotFoundError
		if errors.As(err, &notFoundErr) {
			return false, nil
		}

		return false, fmt.Errorf("failed to find post: %w", err)
	}

	return svc.policy.CanEdit(actorID, post.EditSubject()), nil
}
