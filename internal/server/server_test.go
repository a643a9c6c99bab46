package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/config"
	"github.com/voxkit/cleanscribe/internal/logger"
	"github.com/voxkit/cleanscribe/internal/numwords"
	"github.com/voxkit/cleanscribe/internal/pipeline"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.GetDefaults()
	cfg.WebSocket.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	log := &logger.Logger{Logger: zap.NewNop()}
	pipe := pipeline.New(pipeline.Config{
		DefaultLanguage: "en",
		Numerals:        numwords.English{},
	}, log)

	srv, err := New(cfg, Deps{Pipeline: pipe}, log)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatCompletions(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("CleansLastUserMessage", func(t *testing.T) {
		rec := postJSON(t, srv.Router(), "/v1/chat/completions", `{
			"model": "cleanscribe",
			"messages": [
				{"role": "system", "content": "irrelevant"},
				{"role": "user", "content": "ignored earlier message"},
				{"role": "assistant", "content": "also ignored"},
				{"role": "user", "content": "your going to loose alot"}
			]
		}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
		}

		var resp chatResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if resp.Object != "chat.completion" {
			t.Errorf("Object = %q", resp.Object)
		}
		if !strings.HasPrefix(resp.ID, "chatcmpl-") {
			t.Errorf("ID = %q", resp.ID)
		}
		if len(resp.Choices) != 1 {
			t.Fatalf("Got %d choices", len(resp.Choices))
		}
		choice := resp.Choices[0]
		if choice.Message.Role != "assistant" || choice.FinishReason != "stop" {
			t.Errorf("Choice = %+v", choice)
		}
		if want := "you're going to lose a lot"; choice.Message.Content != want {
			t.Errorf("Content = %q, want %q", choice.Message.Content, want)
		}
	})

	t.Run("EmptyMessagesYieldEmptyOutput", func(t *testing.T) {
		rec := postJSON(t, srv.Router(), "/v1/chat/completions", `{"messages": []}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Status = %d", rec.Code)
		}
		var resp chatResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Choices[0].Message.Content != "" {
			t.Errorf("Content = %q, want empty", resp.Choices[0].Message.Content)
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		rec := postJSON(t, srv.Router(), "/v1/chat/completions", `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", rec.Code)
		}
	})
}

func TestResponsesEndpointIs404(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := postJSON(t, srv.Router(), "/v1/responses", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

func TestModels(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var resp struct {
		Object string `json:"object"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.Object != "list" || len(resp.Data) != 1 || resp.Data[0].ID != modelID {
		t.Errorf("Response = %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("Body = %s", rec.Body.String())
	}
}

func TestInfo(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var info map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if info["name"] != "cleanscribe" {
		t.Errorf("name = %v", info["name"])
	}
	if info["cache_enabled"] != false || info["history_enabled"] != false {
		t.Errorf("info = %+v", info)
	}
}

func TestHistoryDisabled(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit.Enabled = true
		cfg.Server.RateLimit.RequestsPerMin = 60
		cfg.Server.RateLimit.Burst = 2
	})

	body := `{"messages":[{"role":"user","content":"hello"}]}`
	var last int
	for i := 0; i < 3; i++ {
		rec := postJSON(t, srv.Router(), "/v1/chat/completions", body)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("Third request status = %d, want 429", last)
	}
}
