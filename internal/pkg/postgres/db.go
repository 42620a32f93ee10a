package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/edugrade/segma/internal/pkg/persistence"
	"github.com/edugrade/segma/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// InsertUpload inserts an upload row with no segments yet, fills in the id
func (db *DB) InsertUpload(ctx context.Context, item *persistence.AudioUpload) error {
	err := db.pool.QueryRow(ctx, `INSERT INTO audio_uploads(owner_id, filename, storage_key, segments, created)
	VALUES($1, $2, $3, NULL, $4) RETURNING id`, item.OwnerID, item.Filename, item.StorageKey,
		item.Created).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("can't insert upload: %w", err)
	}
	return nil
}

// LoadUpload loads an upload row by its storage key
func (db *DB) LoadUpload(ctx context.Context, storageKey string) (*persistence.AudioUpload, error) {
	var res persistence.AudioUpload
	err := db.pool.QueryRow(ctx, `SELECT id, owner_id, filename, storage_key, segments, created FROM audio_uploads
		WHERE storage_key = $1`, storageKey).Scan(&res.ID, &res.OwnerID, &res.Filename,
		&res.StorageKey, &res.Segments, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load upload: %w", err)
	}
	return &res, nil
}

// LoadUploadByID loads an upload row by its surrogate id
func (db *DB) LoadUploadByID(ctx context.Context, id int64) (*persistence.AudioUpload, error) {
	var res persistence.AudioUpload
	err := db.pool.QueryRow(ctx, `SELECT id, owner_id, filename, storage_key, segments, created FROM audio_uploads
		WHERE id = $1`, id).Scan(&res.ID, &res.OwnerID, &res.Filename,
		&res.StorageKey, &res.Segments, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load upload: %w", err)
	}
	return &res, nil
}

// ListUploads loads all of one owner's uploads, newest first
func (db *DB) ListUploads(ctx context.Context, ownerID int64) ([]*persistence.AudioUpload, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, owner_id, filename, storage_key, segments, created FROM audio_uploads
		WHERE owner_id = $1 ORDER BY created DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("can't list uploads: %w", err)
	}
	defer rows.Close()
	var res []*persistence.AudioUpload
	for rows.Next() {
		var item persistence.AudioUpload
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Filename, &item.StorageKey,
			&item.Segments, &item.Created); err != nil {
			return nil, fmt.Errorf("can't scan upload: %w", err)
		}
		res = append(res, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list uploads: %w", err)
	}
	return res, nil
}

// UpdateSegments overwrites the segments field wholesale
func (db *DB) UpdateSegments(ctx context.Context, storageKey, segmentsJSON string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE audio_uploads SET
	segments = $2,
	updated = $3
	WHERE storage_key = $1`, storageKey, utils.ToSQLStr(segmentsJSON), time.Now())
	if err != nil {
		return fmt.Errorf("can't update segments: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("can't update segments, no records found")
	}
	return nil
}

// DeleteUpload removes an upload row
func (db *DB) DeleteUpload(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM audio_uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete upload: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("can't delete upload, no records found")
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'audio_uploads')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
