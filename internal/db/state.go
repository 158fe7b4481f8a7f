package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
)

// DefaultStateKey names the current schema version of the state blob.
const DefaultStateKey = "basecamp_timer_v1"

// LoadState reads the state stored under key. A missing record yields an
// empty state.
func (db *DB) LoadState(ctx context.Context, key string) (*models.TimerState, error) {
	return db.loadState(ctx, db.DB, key)
}

func (db *DB) loadState(ctx context.Context, exec executor, key string) (*models.TimerState, error) {
	var raw string
	err := exec.QueryRowContext(ctx, `SELECT value FROM timer_state WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.NewTimerState(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not load state '%s'", key)
	}

	state, err := decodeState([]byte(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode state '%s'", key)
	}

	return state, nil
}

// SaveState replaces the state stored under key.
func (db *DB) SaveState(ctx context.Context, key string, state *models.TimerState) error {
	if err := db.saveState(ctx, db.DB, key, state); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) saveState(ctx context.Context, exec executor, key string, state *models.TimerState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "could not encode state")
	}

	query := `
		INSERT INTO timer_state (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := exec.ExecContext(ctx, query, key, string(data)); err != nil {
		return errors.Wrapf(err, "could not save state '%s'", key)
	}
	return nil
}

// UpdateState runs fn against the state stored under key inside a single
// immediate transaction, so concurrent writers from other processes are
// serialized on the database lock. The state is written back only when fn
// reports a change.
func (db *DB) UpdateState(ctx context.Context, key string, fn func(state *models.TimerState) (bool, error)) error {
	changed := false

	err := db.immediate(ctx, func(exec executor) error {
		state, err := db.loadState(ctx, exec, key)
		if err != nil {
			return err
		}

		changed, err = fn(state)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		return db.saveState(ctx, exec, key, state)
	})
	if err != nil {
		return err
	}

	if changed {
		db.triggerChange(ctx)
	}
	return nil
}

// immediate runs fn on a dedicated connection inside BEGIN IMMEDIATE, which
// takes the write lock up front instead of upgrading a read lock at the
// first write.
func (db *DB) immediate(ctx context.Context, fn func(exec executor) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "could not acquire connection")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}

	defer func() {
		if err != nil {
			// The caller's context may already be cancelled.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err = fn(conn); err != nil {
		return err
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return errors.Wrap(err, "could not commit transaction")
	}

	return nil
}

// EnsureState writes an empty state under key unless one already exists.
// It reports whether a record was created.
func (db *DB) EnsureState(ctx context.Context, key string) (bool, error) {
	data, err := json.Marshal(models.NewTimerState())
	if err != nil {
		return false, errors.Wrap(err, "could not encode state")
	}

	res, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO timer_state (key, value) VALUES (?, ?)`, key, string(data))
	if err != nil {
		return false, errors.Wrapf(err, "could not initialize state '%s'", key)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "could not get rows affected")
	}

	if rows > 0 {
		db.triggerChange(ctx)
	}
	return rows > 0, nil
}

// DeleteState drops the record stored under key, e.g. a retired schema
// version.
func (db *DB) DeleteState(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM timer_state WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "could not delete state '%s'", key)
	}

	db.triggerChange(ctx)
	return nil
}

// StateKeys lists every stored state namespace.
func (db *DB) StateKeys(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key FROM timer_state ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, "could not query state keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "could not scan state key")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return keys, nil
}

func decodeState(data []byte) (*models.TimerState, error) {
	state := models.NewTimerState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errors.WithStack(err)
	}
	if state.Tasks == nil {
		state.Tasks = make(map[string]*models.Task)
	}
	// A null entry carries no timing data and would break every reader.
	for id, task := range state.Tasks {
		if task == nil {
			delete(state.Tasks, id)
		}
	}
	return state, nil
}

// StateStore binds one state key to the database.
type StateStore struct {
	db  *DB
	key string
}

func (db *DB) StateStore(key string) *StateStore {
	if key == "" {
		key = DefaultStateKey
	}
	return &StateStore{db: db, key: key}
}

func (s *StateStore) Key() string {
	return s.key
}

func (s *StateStore) Load(ctx context.Context) (*models.TimerState, error) {
	return s.db.LoadState(ctx, s.key)
}

func (s *StateStore) Save(ctx context.Context, state *models.TimerState) error {
	return s.db.SaveState(ctx, s.key, state)
}

// Update runs a load-modify-save cycle as one transaction.
func (s *StateStore) Update(ctx context.Context, fn func(state *models.TimerState) (bool, error)) error {
	return s.db.UpdateState(ctx, s.key, fn)
}
