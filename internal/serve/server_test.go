package serve

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shahbajlive/templar/internal/history"
	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/output"
	"github.com/shahbajlive/templar/internal/source"
)

func testSource() source.Static {
	task := func(title string, est float64) model.WorkItem {
		return model.WorkItem{Title: title, Estimation: est}
	}
	return source.Static{
		"s1": &source.Example{
			Story:    model.WorkItem{ID: "s1", Title: "Checkout", Type: "story", Estimation: 16},
			Children: []model.WorkItem{task("Implement payment flow", 8), task("Write tests", 8)},
		},
		"s2": &source.Example{
			Story:    model.WorkItem{ID: "s2", Title: "Search", Type: "story", Estimation: 16},
			Children: []model.WorkItem{task("Implement payment flow", 8), task("Write unit tests", 8)},
		},
	}
}

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewServer(testSource(), learn.DefaultConfig(), store)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealth(t *testing.T) {
	t.Parallel()

	_, ts := testServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var health output.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Version == "" {
		t.Errorf("health = %+v", health)
	}
}

func TestLearnEndpoint(t *testing.T) {
	t.Parallel()

	_, ts := testServer(t)

	body := bytes.NewBufferString(`{"ids": ["s1", "s2"]}`)
	resp, err := http.Post(ts.URL+"/api/v1/learn", "application/json", body)
	if err != nil {
		t.Fatalf("POST learn: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result learn.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.RunID == "" || len(result.Template.Tasks) == 0 {
		t.Errorf("result = %+v", result)
	}

	// The run must now be retrievable from history.
	getResp, err := http.Get(ts.URL + "/api/v1/runs/" + result.RunID)
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("GET run status = %d", getResp.StatusCode)
	}

	// And listed.
	listResp, err := http.Get(ts.URL + "/api/v1/runs")
	if err != nil {
		t.Fatalf("GET runs: %v", err)
	}
	defer listResp.Body.Close()
	var listing struct {
		Count int                  `json:"count"`
		Runs  []history.RunSummary `json:"runs"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Count != 1 || listing.Runs[0].RunID != result.RunID {
		t.Errorf("listing = %+v", listing)
	}
}

func TestLearnEndpointEmptyBody(t *testing.T) {
	t.Parallel()

	_, ts := testServer(t)

	// No body learns from every example the source lists.
	resp, err := http.Post(ts.URL+"/api/v1/learn", "application/json", nil)
	if err != nil {
		t.Fatalf("POST learn: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result learn.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.ExampleIDs) != 2 {
		t.Errorf("ExampleIDs = %v", result.ExampleIDs)
	}
}

func TestLearnEndpointAllSkipped(t *testing.T) {
	t.Parallel()

	_, ts := testServer(t)

	body := bytes.NewBufferString(`{"ids": ["ghost"]}`)
	resp, err := http.Post(ts.URL+"/api/v1/learn", "application/json", body)
	if err != nil {
		t.Fatalf("POST learn: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var errResp output.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "no_examples" {
		t.Errorf("code = %q", errResp.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	_, ts := testServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/runs/ghost")
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRunReport(t *testing.T) {
	t.Parallel()

	_, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/learn", "application/json", bytes.NewBufferString(`{"ids": ["s1", "s2"]}`))
	if err != nil {
		t.Fatalf("POST learn: %v", err)
	}
	var result learn.Result
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()

	reportResp, err := http.Get(ts.URL + "/api/v1/runs/" + result.RunID + "/report")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer reportResp.Body.Close()

	if ct := reportResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(reportResp.Body)
	if !strings.Contains(buf.String(), "# Template learning report") {
		t.Errorf("report body:\n%s", buf.String())
	}
}

func TestWebSocketProgress(t *testing.T) {
	t.Parallel()

	srv, ts := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client before triggering a run.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/api/v1/learn", "application/json", bytes.NewBufferString(`{"ids": ["s1", "s2"]}`))
	if err != nil {
		t.Fatalf("POST learn: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	sawProgress, sawCompleted := false, false
	for !sawCompleted {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read event: %v (progress=%v)", err, sawProgress)
		}
		switch event.Type {
		case "progress":
			sawProgress = true
		case "run_completed":
			sawCompleted = true
			if event.RunID == "" {
				t.Error("run_completed without run_id")
			}
		}
	}
	if !sawProgress {
		t.Error("no progress events received")
	}
}
