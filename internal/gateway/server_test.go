package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"justdraft/internal/events"
	"justdraft/internal/extract"
	"justdraft/internal/sessions"
)

type staticModel struct {
	reply string
	err   error
}

func (m *staticModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.reply}, nil
}

func (m *staticModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newTestServer(t *testing.T, secret, reply string, modelErr error) (*httptest.Server, *http.Client, *events.Bus) {
	t.Helper()

	bus := events.NewBus(64)
	t.Cleanup(bus.Close)
	store := sessions.NewMemStore(secret)

	factory := func(apiKey string) (*extract.Client, error) {
		if apiKey == "" {
			t.Fatal("factory called without api key")
		}
		return extract.NewClient(func(ctx context.Context, name string) (model.BaseChatModel, error) {
			return &staticModel{reply: reply, err: modelErr}, nil
		}, []string{"test-1.5-model"}, ""), nil
	}

	srv := NewServer(bus, store, factory, "127.0.0.1", 0)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return ts, &http.Client{Jar: jar}, bus
}

func login(t *testing.T, ts *httptest.Server, client *http.Client, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"password": password})
	res, err := client.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res
}

func extractText(t *testing.T, ts *httptest.Server, client *http.Client, text, apiKey string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("text", text)
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return res
}

func TestHealth(t *testing.T) {
	ts, client, _ := newTestServer(t, "hunter2", "{}", nil)

	res, err := client.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestExtractRequiresLogin(t *testing.T) {
	ts, client, _ := newTestServer(t, "hunter2", "{}", nil)

	res := extractText(t, ts, client, "hello", "key")
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", res.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts, client, _ := newTestServer(t, "hunter2", "{}", nil)

	res := login(t, ts, client, "wrong")
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", res.StatusCode)
	}
}

func TestLoginFailClosedWithoutSecret(t *testing.T) {
	ts, client, _ := newTestServer(t, "", "{}", nil)

	res := login(t, ts, client, "anything")
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", res.StatusCode)
	}
}

func TestExtractFlow(t *testing.T) {
	reply := `{"tasks":[{"category":"Shopping","action":"우유 사기","priority":"High","deadline":null}],"memos":[]}`
	ts, client, _ := newTestServer(t, "hunter2", reply, nil)

	if res := login(t, ts, client, "hunter2"); res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", res.StatusCode)
	}

	res := extractText(t, ts, client, "우유 사는 것 잊지 말기", "test-key")
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		t.Fatalf("extract status = %d: %s", res.StatusCode, body)
	}

	var result extract.Result
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Tasks) != 1 || result.Tasks[0].Action != "우유 사기" {
		t.Errorf("result = %+v", result)
	}

	// History records the extraction.
	hres, err := client.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer hres.Body.Close()
	var history []sessions.HistoryEntry
	json.NewDecoder(hres.Body).Decode(&history)
	if len(history) != 1 || !strings.Contains(history[0].Summary, "우유") {
		t.Errorf("history = %+v", history)
	}
}

func TestExtractMissingAPIKey(t *testing.T) {
	ts, client, _ := newTestServer(t, "hunter2", "{}", nil)
	login(t, ts, client, "hunter2")

	res := extractText(t, ts, client, "hello", "")
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}
}

func TestExtractFailureIsUserVisible(t *testing.T) {
	ts, client, _ := newTestServer(t, "hunter2", "", errors.New("503 overloaded"))
	login(t, ts, client, "hunter2")

	res := extractText(t, ts, client, "hello", "key")
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(res.Body).Decode(&body)
	if !strings.Contains(body["error"], "all models failed") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestUpdateResultReplacesTasks(t *testing.T) {
	reply := `{"tasks":[{"category":"Work","action":"old","priority":"Normal","deadline":null}],"memos":[{"content":"keep me"}]}`
	ts, client, _ := newTestServer(t, "hunter2", reply, nil)
	login(t, ts, client, "hunter2")
	extractText(t, ts, client, "hello", "key").Body.Close()

	payload, _ := json.Marshal(map[string]any{
		"tasks": []extract.Task{{Category: "Work", Action: "edited", Priority: "High"}},
	})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/result", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	defer res.Body.Close()

	var updated extract.Result
	json.NewDecoder(res.Body).Decode(&updated)
	if len(updated.Tasks) != 1 || updated.Tasks[0].Action != "edited" {
		t.Errorf("tasks = %+v", updated.Tasks)
	}
	// Memos survive a task edit.
	if len(updated.Memos) != 1 || updated.Memos[0].Content != "keep me" {
		t.Errorf("memos = %+v", updated.Memos)
	}
}

func TestExportFormats(t *testing.T) {
	reply := `{"tasks":[{"category":"Work","action":"Buy milk","priority":"High","deadline":"2024-01-01"}],"memos":[]}`
	ts, client, _ := newTestServer(t, "hunter2", reply, nil)
	login(t, ts, client, "hunter2")
	extractText(t, ts, client, "buy milk", "key").Body.Close()

	res, err := client.Get(ts.URL + "/api/export/markdown")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer res.Body.Close()
	if got := res.Header.Get("Content-Disposition"); !strings.Contains(got, "brain.md") {
		t.Errorf("disposition = %q", got)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "- [Work] Buy milk 🔥 (📅 2024-01-01)") {
		t.Errorf("markdown = %s", body)
	}

	// No memos: memos.csv degrades to "no file".
	res2, err := client.Get(ts.URL + "/api/export/memos.csv")
	if err != nil {
		t.Fatalf("export memos: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusNoContent {
		t.Errorf("memos.csv status = %d, want 204", res2.StatusCode)
	}

	res3, err := client.Get(ts.URL + "/api/export/xlsx")
	if err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	defer res3.Body.Close()
	if res3.StatusCode != http.StatusBadRequest {
		t.Errorf("xlsx status = %d, want 400", res3.StatusCode)
	}
}

func TestResetClearsResultKeepsHistory(t *testing.T) {
	reply := `{"tasks":[],"memos":[{"content":"m"}]}`
	ts, client, _ := newTestServer(t, "hunter2", reply, nil)
	login(t, ts, client, "hunter2")
	extractText(t, ts, client, "hello", "key").Body.Close()

	res, err := client.Post(ts.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	res.Body.Close()

	// Past extractions stay listed after the reset.
	hres, err := client.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer hres.Body.Close()
	var history []sessions.HistoryEntry
	json.NewDecoder(hres.Body).Decode(&history)
	if len(history) != 1 {
		t.Fatalf("history after reset = %d entries, want 1", len(history))
	}
	if history[0].Summary != "hello" {
		t.Errorf("history entry after reset = %+v", history[0])
	}

	// Session survives the reset: still authenticated.
	res2 := extractText(t, ts, client, "again", "key")
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusOK {
		t.Errorf("extract after reset = %d", res2.StatusCode)
	}
}
