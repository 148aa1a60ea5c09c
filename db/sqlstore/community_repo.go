package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/tribune/communities"
)

const tableCommunities = "communities"

type CommunityRepository struct {
	db *DB
}

var _ communities.CommunityRepository = (*CommunityRepository)(nil)

func NewCommunityRepository(db *DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

const (
	communityFieldID          = "id"
	communityFieldName        = "name"
	communityFieldDescription = "description"
	communityFieldOwnerID     = "owner_id"
	communityFieldStatus      = "status"
	communityFieldCreatedAt   = "created_at"
)

func communityColumns() []string {
	return []string{
		communityFieldID,
		communityFieldName,
		communityFieldDescription,
		communityFieldOwnerID,
		communityFieldStatus,
		communityFieldCreatedAt,
	}
}

func scanCommunity(row sq.RowScanner) (*communities.Community, error) {
	var community communities.Community

	err := row.Scan(
		&community.ID,
		&community.Name,
		&community.Description,
		&community.OwnerID,
		&community.Status,
		&community.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &community, nil
}

func (repo *CommunityRepository) Insert(ctx context.Context, community *communities.Community) error {
	q := repo.db.builder().
		Insert(tableCommunities).
		Columns(communityColumns()...).
		Values(
			community.ID,
			community.Name,
			community.Description,
			community.OwnerID,
			string(community.Status),
			community.CreatedAt.UTC(),
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &communities.CommunityAlreadyExistsError{Name: community.Name}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *CommunityRepository) Find(ctx context.Context, communityID string) (*communities.Community, error) {
	q := repo.db.builder().
		Select(communityColumns()...).
		From(tableCommunities).
		Where(sq.Eq{communityFieldID: communityID})

	q = q.RunWith(repo.db)

	community, err := scanCommunity(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &communities.CommunityNotFoundError{ID: communityID}
		}

		return nil, fmt.Errorf("failed to scan community: %w", err)
	}

	return community, nil
}

func (repo *CommunityRepository) FindByName(ctx context.Context, name string) (*communities.Community, error) {
	q := repo.db.builder().
		Select(communityColumns()...).
		From(tableCommunities).
		Where(sq.Eq{communityFieldName: name})

	q = q.RunWith(repo.db)

	community, err := scanCommunity(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &communities.CommunityByNameNotFoundError{Name: name}
		}

		return nil, fmt.Errorf("failed to scan community: %w", err)
	}

	return community, nil
}

func (repo *CommunityRepository) List(ctx context.Context) ([]*communities.Community, error) {
	q := repo.db.builder().
		Select(communityColumns()...).
		From(tableCommunities).
		OrderBy(communityFieldName + " ASC")

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer closeRows(ctx, rows)

	result := make([]*communities.Community, 0)

	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan community failed: %w", err)
		}

		result = append(result, community)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return result, nil
}
