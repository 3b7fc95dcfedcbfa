package library

import (
	"fmt"
	"strings"
	"time"
)

func addEntity(q querier, e *MonitoredEntity) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO monitored_entities (kind, source_id, display_name, added_at)
		VALUES (?, ?, ?, ?)`,
		e.Kind, e.SourceID, e.DisplayName, now,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	e.AddedAt = now
	return nil
}

// AddEntity inserts a new monitored entity.
// Sets ID and AddedAt on the struct. Returns ErrDuplicate if the
// (kind, source id) pair is already monitored.
func (s *Store) AddEntity(e *MonitoredEntity) error { return addEntity(s.db, e) }

// AddEntity inserts a new monitored entity within a transaction.
func (t *Tx) AddEntity(e *MonitoredEntity) error { return addEntity(t.tx, e) }

func getEntity(q querier, id int64) (*MonitoredEntity, error) {
	e := &MonitoredEntity{}
	err := q.QueryRow(`
		SELECT id, kind, source_id, display_name, added_at, last_checked_at
		FROM monitored_entities WHERE id = ?`, id,
	).Scan(&e.ID, &e.Kind, &e.SourceID, &e.DisplayName, &e.AddedAt, &e.LastCheckedAt)
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, mapSQLiteError(err))
	}
	return e, nil
}

// GetEntity retrieves a monitored entity by row ID.
// Returns ErrNotFound if the entity does not exist.
func (s *Store) GetEntity(id int64) (*MonitoredEntity, error) { return getEntity(s.db, id) }

// GetEntity retrieves a monitored entity by row ID within a transaction.
func (t *Tx) GetEntity(id int64) (*MonitoredEntity, error) { return getEntity(t.tx, id) }

// GetEntityBySource finds a monitored entity by its catalog identifier.
// Returns nil, nil if not found.
func (s *Store) GetEntityBySource(kind EntityKind, sourceID string) (*MonitoredEntity, error) {
	entities, _, err := s.ListEntities(EntityFilter{Kind: &kind, SourceID: &sourceID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0], nil
}

func listEntities(q querier, f EntityFilter) ([]*MonitoredEntity, int, error) {
	var conditions []string
	var args []any

	if f.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, *f.Kind)
	}
	if f.SourceID != nil {
		conditions = append(conditions, "source_id = ?")
		args = append(args, *f.SourceID)
	}
	if f.AddedSince != nil {
		conditions = append(conditions, "added_at >= ?")
		args = append(args, *f.AddedSince)
	}
	if f.AddedUntil != nil {
		conditions = append(conditions, "added_at <= ?")
		args = append(args, *f.AddedUntil)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM monitored_entities "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	query := "SELECT id, kind, source_id, display_name, added_at, last_checked_at FROM monitored_entities " + whereClause + " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*MonitoredEntity
	for rows.Next() {
		e := &MonitoredEntity{}
		if err := rows.Scan(&e.ID, &e.Kind, &e.SourceID, &e.DisplayName, &e.AddedAt, &e.LastCheckedAt); err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entities: %w", err)
	}

	return results, total, nil
}

// ListEntities returns monitored entities matching the filter with pagination.
// Returns (results, totalCount, error).
func (s *Store) ListEntities(f EntityFilter) ([]*MonitoredEntity, int, error) {
	return listEntities(s.db, f)
}

// ListEntities returns monitored entities matching the filter within a transaction.
func (t *Tx) ListEntities(f EntityFilter) ([]*MonitoredEntity, int, error) {
	return listEntities(t.tx, f)
}

func deleteEntity(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM monitored_entities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entity %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteEntity removes a monitored entity by row ID. Release history for the
// entity is intentionally left in place.
// This operation is idempotent - no error is returned if the entity does not exist.
func (s *Store) DeleteEntity(id int64) error { return deleteEntity(s.db, id) }

// DeleteEntity removes a monitored entity by row ID within a transaction.
func (t *Tx) DeleteEntity(id int64) error { return deleteEntity(t.tx, id) }

func touchEntityChecked(q querier, id int64, checkedAt time.Time) error {
	result, err := q.Exec("UPDATE monitored_entities SET last_checked_at = ? WHERE id = ?", checkedAt, id)
	if err != nil {
		return fmt.Errorf("touch entity %d: %w", id, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("touch entity %d: %w", id, ErrNotFound)
	}
	return nil
}

// TouchEntityChecked records when the entity was last reconciled.
// Returns ErrNotFound if the entity does not exist.
func (s *Store) TouchEntityChecked(id int64, checkedAt time.Time) error {
	return touchEntityChecked(s.db, id, checkedAt)
}

// TouchEntityChecked records the last reconciliation time within a transaction.
func (t *Tx) TouchEntityChecked(id int64, checkedAt time.Time) error {
	return touchEntityChecked(t.tx, id, checkedAt)
}
