package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ldi/stint/internal/db"
	"github.com/ldi/stint/internal/host"
	"github.com/ldi/stint/internal/router"
	"github.com/ldi/stint/internal/timer"
)

type stateResponse struct {
	ActiveTaskID *string `json:"activeTaskId"`
	Badge        string  `json:"badge"`
	Tasks        []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Status    string `json:"status"`
		ElapsedMs int64  `json:"elapsedMs"`
	} `json:"tasks"`
}

func TestServer_API(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	err = database.Init(ctx)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	engine := timer.NewEngine(database.StateStore(db.DefaultStateKey))
	session := host.NewSession("")
	r := router.New(engine, session)

	now := time.UnixMilli(1_000_000)
	r.SetClock(func() time.Time { return now })

	srv := NewServer(r)
	handler := srv.Handler()

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("POST /api/tasks", func(t *testing.T) {
		w := do("POST", "/api/tasks", `{"url":"https://3.basecamp.com/1/buckets/2/todos/42","title":"Write docs on Basecamp"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}

		var task struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
			t.Fatalf("Failed to unmarshal task: %v", err)
		}
		if task.ID != "42" || task.Title != "Write docs" || task.Status != "running" {
			t.Errorf("Unexpected task %+v", task)
		}
	})

	t.Run("POST /api/tasks rejects other hosts", func(t *testing.T) {
		w := do("POST", "/api/tasks", `{"url":"https://example.com/todos/1","title":"x"}`)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected status 422, got %v", w.Code)
		}
		if !strings.Contains(w.Body.String(), "not a Basecamp page") {
			t.Errorf("Unexpected body %q", w.Body.String())
		}
	})

	t.Run("POST /api/tasks invalid body", func(t *testing.T) {
		w := do("POST", "/api/tasks", `{`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %v", w.Code)
		}
	})

	t.Run("GET /api/state", func(t *testing.T) {
		now = now.Add(90 * time.Second)

		w := do("GET", "/api/state", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}

		var state stateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
			t.Fatalf("Failed to unmarshal state: %v", err)
		}
		if state.Badge != "ON" {
			t.Errorf("Expected badge ON, got %q", state.Badge)
		}
		if len(state.Tasks) != 1 {
			t.Fatalf("Expected 1 task, got %d", len(state.Tasks))
		}
		if state.Tasks[0].ElapsedMs != 90_000 {
			t.Errorf("Expected 90000ms elapsed, got %d", state.Tasks[0].ElapsedMs)
		}
	})

	t.Run("POST /api/tasks/{id}/toggle", func(t *testing.T) {
		w := do("POST", "/api/tasks/42/toggle", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"paused"`) {
			t.Errorf("Expected paused task, got %s", w.Body.String())
		}

		w = do("POST", "/api/tasks/404/toggle", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %v", w.Code)
		}
	})

	t.Run("POST /api/dispatch", func(t *testing.T) {
		w := do("POST", "/api/dispatch", `{"action":"GET_DATA"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}

		var res router.Response
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !res.Success || res.State == nil || len(res.State.Tasks) != 1 {
			t.Errorf("Unexpected response %+v", res)
		}

		w = do("POST", "/api/dispatch", `{"action":"EXPLODE"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %v", w.Code)
		}
	})

	t.Run("POST /api/dispatch ADD_TASK", func(t *testing.T) {
		w := do("POST", "/api/dispatch", `{"action":"ADD_TASK"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}

		var res router.Response
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if res.Success || res.Error != "no active page" {
			t.Errorf("Unexpected response %+v", res)
		}

		w = do("POST", "/api/dispatch", `{"action":"ADD_TASK","url":"https://3.basecamp.com/1/buckets/2/todos/43","title":"Review on Basecamp"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}

		res = router.Response{}
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !res.Success || res.Task == nil || res.Task.ID != "43" || res.Task.Title != "Review" {
			t.Errorf("Unexpected response %+v", res)
		}

		w = do("POST", "/api/dispatch", `{"action":"DELETE_TASK","taskId":"43"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
	})

	t.Run("POST /api/tasks/{id}/open", func(t *testing.T) {
		w := do("POST", "/api/tasks/42/open", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected status 204, got %v: %s", w.Code, w.Body.String())
		}

		page, err := session.ActivePage(ctx)
		if err != nil {
			t.Fatalf("ActivePage failed: %v", err)
		}
		if page.URL != "https://3.basecamp.com/1/buckets/2/todos/42" {
			t.Errorf("Unexpected page %s", page.URL)
		}
	})

	t.Run("GET /metrics", func(t *testing.T) {
		w := do("GET", "/metrics", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		if !strings.Contains(w.Body.String(), "stint_operations_total") {
			t.Error("Expected stint_operations_total in metrics output")
		}
	})

	t.Run("DELETE /api/tasks/{id}", func(t *testing.T) {
		w := do("DELETE", "/api/tasks/42", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected status 204, got %v", w.Code)
		}

		state, err := database.LoadState(ctx, db.DefaultStateKey)
		if err != nil {
			t.Fatalf("LoadState failed: %v", err)
		}
		if len(state.Tasks) != 0 {
			t.Errorf("Expected no tasks, got %d", len(state.Tasks))
		}
	})
}

func TestServer_Shutdown(t *testing.T) {
	srv := NewServer(router.New(timer.NewEngine(timer.NewMemoryStore()), host.NewSession("")))
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before Start failed: %v", err)
	}
}
