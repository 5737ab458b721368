package assistant

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Store is the catalog surface the LTI subsystem needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (Assistant, error)
	// UpdatePublication writes the publication fields iff the row still has
	// expectedVersion; ErrVersionConflict otherwise. The version is bumped
	// on success.
	UpdatePublication(ctx context.Context, id, expectedVersion int64, pub Publication) error
}

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) GetByID(ctx context.Context, id int64) (Assistant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,owner,published,published_at,group_id,group_name,oauth_consumer_name,version,created_at
		 FROM assistants WHERE id=$1`, id)
	var a Assistant
	var publishedAt sql.NullInt64
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Owner, &a.Published, &publishedAt,
		&a.GroupID, &a.GroupName, &a.ConsumerName, &a.Version, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assistant{}, ErrNotFound
		}
		return Assistant{}, err
	}
	if publishedAt.Valid {
		a.PublishedAt = publishedAt.Int64
	}
	return a, nil
}

func (s *SQLStore) UpdatePublication(ctx context.Context, id, expectedVersion int64, pub Publication) error {
	var publishedAt any
	if pub.PublishedAt != 0 {
		publishedAt = pub.PublishedAt
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE assistants
		 SET published=$1, published_at=$2, group_id=$3, group_name=$4, oauth_consumer_name=$5, version=version+1
		 WHERE id=$6 AND version=$7`,
		pub.Published, publishedAt, pub.GroupID, pub.GroupName, pub.ConsumerName, id, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is gone or someone else bumped the version.
		if _, err := s.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// Create inserts a new assistant row. The LTI subsystem never calls this in
// production (assistants are created by the editing API); it exists for
// seeding and tests.
func (s *SQLStore) Create(ctx context.Context, name, description, owner string) (Assistant, error) {
	now := time.Now().Unix()
	var id int64
	if s.driver == "postgres" {
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO assistants (name,description,owner,created_at) VALUES ($1,$2,$3,$4) RETURNING id`,
			name, description, owner, now).Scan(&id)
		if err != nil {
			return Assistant{}, err
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO assistants (name,description,owner,created_at) VALUES ($1,$2,$3,$4)`,
			name, description, owner, now)
		if err != nil {
			return Assistant{}, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return Assistant{}, err
		}
	}
	return s.GetByID(ctx, id)
}
