package discuss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nasermirzaei89/tribune/contents"
	"github.com/nasermirzaei89/tribune/editwindow"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type PostFinder interface {
	GetPost(ctx context.Context, postID string) (*contents.Post, error)
}

type Renderer interface {
	Render(source string) (string, error)
}

type Observer interface {
	ObserveCommentCreated(reply bool)
}

type nopObserver struct{}

func (nopObserver) ObserveCommentCreated(bool) {}

const DefaultDepth = 2

type Config struct {
	// DefaultDepth is how many levels below the requested one are returned by ListThreads.
	DefaultDepth int
}

func DefaultConfig() Config {
	return Config{DefaultDepth: DefaultDepth}
}

type Service struct {
	commentRepo CommentRepository
	posts       PostFinder
	policy      *editwindow.Policy
	renderer    Renderer
	cfg         Config
	observer    Observer
	now         func() time.Time
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

func NewService(
	commentRepo CommentRepository,
	posts PostFinder,
	policy *editwindow.Policy,
	renderer Renderer,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if cfg.DefaultDepth < 0 {
		return nil, fmt.Errorf("invalid default comment depth: %d", cfg.DefaultDepth)
	}

	svc := &Service{
		commentRepo: commentRepo,
		posts:       posts,
		policy:      policy,
		renderer:    renderer,
		cfg:         cfg,
		observer:    nopObserver{},
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

type CreateCommentRequest struct {
	PostID   string `validate:"required"`
	ParentID string
	AuthorID string `validate:"required"`
	Content  string `validate:"required,max=10000"`
}

func (svc *Service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	err := validate.Struct(req)
	if err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	post, err := svc.posts.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if post.Status == contents.StatusDeleted {
		return nil, &contents.PostNotFoundError{ID: req.PostID}
	}

	var (
		parent   *Comment
		parentID *string
	)

	if req.ParentID != "" {
		parent, err = svc.commentRepo.Find(ctx, req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to find parent comment: %w", err)
		}

		if parent.PostID != req.PostID {
			return nil, &CrossPostParentError{
				PostID:       req.PostID,
				ParentID:     parent.ID,
				ParentPostID: parent.PostID,
			}
		}

		parentID = &parent.ID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate comment id: %w", err)
	}

	contentHTML, err := svc.renderer.Render(req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	level := 0
	if parent != nil {
		level = parent.Level + 1
	}

	timeNow := svc.now().UTC()

	comment := &Comment{
		ID:          id.String(),
		PostID:      req.PostID,
		ParentID:    parentID,
		AuthorID:    req.AuthorID,
		Level:       level,
		Path:        childPath(parent, id.String()),
		Content:     req.Content,
		ContentHTML: contentHTML,
		CreatedAt:   timeNow,
		UpdatedAt:   timeNow,
	}

	err = svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	svc.observer.ObserveCommentCreated(parent != nil)

	slog.DebugContext(ctx, "comment created", "commentID", comment.ID, "postID", comment.PostID, "level", level)

	return comment, nil
}

func (svc *Service) GetComment(ctx context.Context, commentID string) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

// FetchSubtree returns every comment below commentID, down to maxLevel when it is given.
func (svc *Service) FetchSubtree(ctx context.Context, commentID string, maxLevel *int) ([]*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	comments, err := svc.commentRepo.ListDescendants(ctx, comment, maxLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to list descendants: %w", err)
	}

	return comments, nil
}

func (svc *Service) FetchRoots(ctx context.Context, postID string) ([]*Comment, error) {
	comments, err := svc.commentRepo.ListRoots(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root comments: %w", err)
	}

	return comments, nil
}

// DefaultMaxLevel is the deepest level returned when listing the replies of parent.
func (svc *Service) DefaultMaxLevel(parent *Comment) int {
	if parent == nil {
		return svc.cfg.DefaultDepth
	}

	return parent.Level + svc.cfg.DefaultDepth
}

// ListThreads returns nested threads of a post, or of one comment when ParentID is set.
// A missing post or parent yields an empty result, not an error.
func (svc *Service) ListThreads(ctx context.Context, params ListCommentsParams) ([]*Thread, error) {
	if params.PostID == "" {
		return []*Thread{}, nil
	}

	post, err := svc.posts.GetPost(ctx, params.PostID)
	if err != nil {
		var notFoundErr *contents.PostNotFoundError
		if errors.As(err, &notFoundErr) {
			return []*Thread{}, nil
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if post.Status == contents.StatusDeleted {
		return []*Thread{}, nil
	}

	if params.ParentID == "" {
		maxLevel := svc.DefaultMaxLevel(nil)

		comments, err := svc.commentRepo.ListByPost(ctx, post.ID, &maxLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}

		return buildThreads(comments, nil), nil
	}

	parent, err := svc.commentRepo.Find(ctx, params.ParentID)
	if err != nil {
		var notFoundErr *CommentNotFoundError
		if errors.As(err, &notFoundErr) {
			return []*Thread{}, nil
		}

		return nil, fmt.Errorf("failed to find parent comment: %w", err)
	}

	if parent.PostID != post.ID {
		return []*Thread{}, nil
	}

	maxLevel := svc.DefaultMaxLevel(parent)

	comments, err := svc.commentRepo.ListDescendants(ctx, parent, &maxLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	return buildThreads(comments, &parent.ID), nil
}

// buildThreads nests comments under their parents keeping the input order among siblings.
// Comments whose parent is rootID (nil for top level) become the returned threads.
func buildThreads(comments []*Comment, rootID *string) []*Thread {
	threads := make(map[string]*Thread, len(comments))

	for _, comment := range comments {
		threads[comment.ID] = &Thread{Comment: comment, Replies: []*Thread{}}
	}

	roots := make([]*Thread, 0)

	for _, comment := range comments {
		thread := threads[comment.ID]

		switch {
		case comment.ParentID == nil:
			if rootID == nil {
				roots = append(roots, thread)
			}
		case rootID != nil && *comment.ParentID == *rootID:
			roots = append(roots, thread)
		default:
			parent, ok := threads[*comment.ParentID]
			if ok {
				parent.Replies = append(parent.Replies, thread)
			}
		}
	}

	return roots
}

type UpdateCommentRequest struct {
	CommentID string `validate:"required"`
	ActorID   string `validate:"required"`
	Content   string `validate:"required,max=10000"`
}

func (svc *Service) UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error) {
	err := validate.Struct(req)
	if err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	comment, err := svc.commentRepo.Find(ctx, req.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	err = svc.policy.Check(req.ActorID, comment.EditSubject())
	if err != nil {
		return nil, err
	}

	contentHTML, err := svc.renderer.Render(req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	comment.Content = req.Content
	comment.ContentHTML = contentHTML
	comment.UpdatedAt = svc.now().UTC()

	updated, err := svc.commentRepo.UpdateContent(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	if !updated {
		return nil, &editwindow.EditForbiddenError{
			Kind:   editwindow.KindComment,
			ID:     comment.ID,
			Reason: editwindow.ReasonFrozen,
		}
	}

	return comment, nil
}

func (svc *Service) CanEditComment(ctx context.Context, actorID, commentID string) (bool, error) {
	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		var notFoundErr *CommentNotFoundError
		if errors.As(err, &notFoundErr) {
			return false, nil
		}

		return false, fmt.Errorf("failed to find comment: %w", err)
	}

	return svc.policy.CanEdit(actorID, comment.EditSubject()), nil
}
