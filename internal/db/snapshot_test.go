package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SaveState(ctx, DefaultStateKey, sampleState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snap", "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, DefaultStateKey, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open snapshot: %v", err)
	}
	defer file.Close()

	var types []string
	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec struct {
			RecordType string `json:"record_type"`
			ID         string `json:"id"`
			Key        string `json:"key"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("Invalid line %q: %v", scanner.Text(), err)
		}
		types = append(types, rec.RecordType)
		if rec.RecordType == "task" {
			ids = append(ids, rec.ID)
		}
		if rec.RecordType == "meta" && rec.Key != DefaultStateKey {
			t.Errorf("Expected meta key %s, got %s", DefaultStateKey, rec.Key)
		}
	}

	if got := strings.Join(types, ","); got != "meta,state,task,task" {
		t.Errorf("Unexpected record order %s", got)
	}
	if got := strings.Join(ids, ","); got != "100,200" {
		t.Errorf("Expected tasks ordered by id, got %s", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "snapshot-*.jsonl"))
	if len(matches) != 0 {
		t.Errorf("Expected temp files to be cleaned up, found %v", matches)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := openTestDB(t)
	ctx := context.Background()

	if err := src.SaveState(ctx, DefaultStateKey, sampleState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := src.ExportSnapshot(ctx, DefaultStateKey, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	dst := openTestDB(t)
	if err := dst.ImportSnapshot(ctx, "imported", path); err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}

	state, err := dst.LoadState(ctx, "imported")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.ActiveTaskID == nil || *state.ActiveTaskID != "200" {
		t.Errorf("Expected active task 200, got %v", state.ActiveTaskID)
	}
	if len(state.Tasks) != 2 || state.Tasks["100"].AccumulatedTime != 5000 {
		t.Errorf("Unexpected imported state %+v", state)
	}
}

func TestImportSnapshot_RejectsInvalidState(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	content := `{"record_type":"state","activeTaskId":null}
{"record_type":"task","id":"1","status":"running","accumulatedTime":0,"lastStartTime":1}
{"record_type":"task","id":"2","status":"running","accumulatedTime":0,"lastStartTime":1}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := db.ImportSnapshot(ctx, DefaultStateKey, path); err == nil {
		t.Fatal("Expected invalid snapshot to be rejected")
	}

	state, _ := db.LoadState(ctx, DefaultStateKey)
	if len(state.Tasks) != 0 {
		t.Error("Expected nothing to be written")
	}
}

func TestImportSnapshot_UnknownRecord(t *testing.T) {
	db := openTestDB(t)

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	os.WriteFile(path, []byte(`{"record_type":"feature"}`+"\n"), 0644)

	if err := db.ImportSnapshot(context.Background(), DefaultStateKey, path); err == nil {
		t.Fatal("Expected unknown record type to be rejected")
	}
}

func TestAutoSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "auto-snapshot.jsonl")
	db.EnableAutoSnapshot(DefaultStateKey, path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Expected no snapshot before any write")
	}

	if err := db.SaveState(ctx, DefaultStateKey, sampleState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Snapshot file was not created after SaveState: %v", err)
	}
	if !strings.Contains(string(data), `"title":"Task B"`) {
		t.Errorf("Expected snapshot to contain Task B, got %s", data)
	}
}
