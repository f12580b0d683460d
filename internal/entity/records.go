package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

func (s *Store) insert(ctx context.Context, kind, id, stateJSON string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO entities (kind, id, state_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		kind,
		id,
		stateJSON,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateID, kind, id)
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *Store) getRaw(ctx context.Context, kind, id string) (string, error) {
	var stateJSON string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT state_json FROM entities WHERE kind = ? AND id = ?`,
		kind,
		id,
	).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return "", fmt.Errorf("get entity: %w", err)
	}
	return stateJSON, nil
}

func (s *Store) exists(ctx context.Context, kind, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT 1 FROM entities WHERE kind = ? AND id = ?`,
		kind,
		id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check entity: %w", err)
	}
	return true, nil
}

func (s *Store) updateRaw(ctx context.Context, kind, id, stateJSON string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entities SET state_json = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		stateJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
		kind,
		id,
	)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	return nil
}

// deleteOne removes a record and its index entry. Deleting an absent record is
// not an error; the boolean reports whether anything was removed.
func (s *Store) deleteOne(ctx context.Context, kind, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM entities WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return false, fmt.Errorf("delete entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) deleteMany(ctx context.Context, kind string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, kind)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM entities WHERE kind = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete entities: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) clearAll(ctx context.Context, kind string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM entities WHERE kind = ?`, kind)
	if err != nil {
		return 0, fmt.Errorf("clear entities: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) count(ctx context.Context, kind string) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entities WHERE kind = ?`, kind).Scan(&total); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return total, nil
}

type rawRecord struct {
	id        string
	stateJSON string
}

// listRaw returns up to limit records of the kind in insertion order, starting
// strictly after the cursor id. An unknown or absent cursor starts from the
// beginning. The next cursor is the id of the last returned record when more
// records remain, nil when the page reached the end.
func (s *Store) listRaw(ctx context.Context, kind string, cursor *string, limit int) ([]rawRecord, *string, error) {
	afterSeq := int64(0)
	if cursor != nil && *cursor != "" {
		err := s.db.QueryRowContext(
			ctx,
			`SELECT seq FROM entities WHERE kind = ? AND id = ?`,
			kind,
			*cursor,
		).Scan(&afterSeq)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("resolve cursor: %w", err)
		}
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, state_json FROM entities WHERE kind = ? AND seq > ? ORDER BY seq LIMIT ?`,
		kind,
		afterSeq,
		limit+1,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var records []rawRecord
	for rows.Next() {
		var rec rawRecord
		if err := rows.Scan(&rec.id, &rec.stateJSON); err != nil {
			return nil, nil, fmt.Errorf("scan entity: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate entities: %w", err)
	}

	var next *string
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1].id
		next = &last
	}
	return records, next, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: entities.kind, entities.id")
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
