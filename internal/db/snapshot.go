package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
)

const (
	recordMeta  = "meta"
	recordState = "state"
	recordTask  = "task"
)

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	ExportID   string    `json:"export_id"`
	Key        string    `json:"key"`
	ExportedAt time.Time `json:"exported_at"`
}

type snapshotState struct {
	RecordType   string  `json:"record_type"`
	ActiveTaskID *string `json:"activeTaskId"`
}

type snapshotTask struct {
	RecordType string `json:"record_type"`
	*models.Task
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// of key to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(key, path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Hooks are best-effort; a failed export must not fail the write.
		_ = db.ExportSnapshot(ctx, key, path)
	})
}

// ExportSnapshot writes the state stored under key to path as JSONL: one meta
// line, one state line, then one line per task ordered by id. The file is
// replaced atomically.
func (db *DB) ExportSnapshot(ctx context.Context, key, path string) error {
	state, err := db.LoadState(ctx, key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create snapshot directory")
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	enc := json.NewEncoder(tempFile)

	meta := snapshotMeta{
		RecordType: recordMeta,
		ExportID:   uuid.New().String(),
		Key:        key,
		ExportedAt: time.Now().UTC(),
	}
	if err := enc.Encode(meta); err != nil {
		return errors.Wrap(err, "could not write snapshot meta")
	}

	if err := enc.Encode(snapshotState{RecordType: recordState, ActiveTaskID: state.ActiveTaskID}); err != nil {
		return errors.Wrap(err, "could not write snapshot state")
	}

	ids := make([]string, 0, len(state.Tasks))
	for id := range state.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := enc.Encode(snapshotTask{RecordType: recordTask, Task: state.Tasks[id]}); err != nil {
			return errors.Wrapf(err, "could not write snapshot task %s", id)
		}
	}

	if err := tempFile.Sync(); err != nil {
		return errors.Wrap(err, "could not sync temp file")
	}

	if err := tempFile.Close(); err != nil {
		return errors.Wrap(err, "could not close temp file")
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return errors.Wrap(err, "could not rename temp file")
	}

	return nil
}

// ImportSnapshot reads a JSONL snapshot and stores it under key, replacing
// the current state. The snapshot is validated before anything is written.
func (db *DB) ImportSnapshot(ctx context.Context, key, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "could not open snapshot file")
	}
	defer file.Close()

	state := models.NewTimerState()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return errors.Wrap(err, "could not unmarshal base record")
		}

		switch base.RecordType {
		case recordMeta:
			// Skip meta
		case recordState:
			var s snapshotState
			if err := json.Unmarshal(line, &s); err != nil {
				return errors.Wrap(err, "could not unmarshal state record")
			}
			state.ActiveTaskID = s.ActiveTaskID
		case recordTask:
			var t models.Task
			if err := json.Unmarshal(line, &t); err != nil {
				return errors.Wrap(err, "could not unmarshal task record")
			}
			if t.ID == "" {
				return errors.New("task record without id")
			}
			state.Tasks[t.ID] = &t
		default:
			return errors.Errorf("unknown record type '%s'", base.RecordType)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scanner error")
	}

	if err := state.Validate(time.Now()); err != nil {
		return errors.Wrap(err, "invalid snapshot")
	}

	err = db.immediate(ctx, func(exec executor) error {
		return db.saveState(ctx, exec, key, state)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}
