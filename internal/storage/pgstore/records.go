package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Save upserts a record. Writes are atomic per key, last write wins; no
// cross-record transaction is ever needed.
func (s *Storage) Save(ctx context.Context, collection, id string, data []byte) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO records (collection, id, data, created_at, updated_at)
VALUES ($1,$2,$3,now(),now())
ON CONFLICT (collection, id)
DO UPDATE SET data = EXCLUDED.data, updated_at = now()
`, collection, id, data)
	return errors.Wrap(err, "save record")
}

func (s *Storage) Load(ctx context.Context, collection, id string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `
SELECT data FROM records WHERE collection = $1 AND id = $2
`, collection, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "load record")
	}
	return data, true, nil
}

// LoadAll returns every record in a collection, most recently created first.
func (s *Storage) LoadAll(ctx context.Context, collection string) ([][]byte, error) {
	rows, err := s.db.Query(ctx, `
SELECT data FROM records WHERE collection = $1 ORDER BY created_at DESC
`, collection)
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		out = append(out, data)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) Delete(ctx context.Context, collection, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return false, errors.Wrap(err, "delete record")
	}
	return tag.RowsAffected() > 0, nil
}
