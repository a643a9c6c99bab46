package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/voxkit/cleanscribe/internal/history"
	"github.com/voxkit/cleanscribe/internal/pipeline"
	"github.com/voxkit/cleanscribe/internal/websocket"
	"go.uber.org/zap"
)

// chatRequest is the subset of the OpenAI chat completion request we read.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// handleChatCompletions runs the correction pipeline over the last user
// message and returns the cleaned text as an assistant reply.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Last message with role=user carries the transcript.
	var text string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			text = req.Messages[i].Content
			break
		}
	}

	start := time.Now()
	output, language, stages, cached := s.runPipeline(r, text, requestID)
	durationMS := float64(time.Since(start).Nanoseconds()) / 1e6

	if s.history != nil && !cached {
		run := &history.Run{
			RequestID:  requestID,
			Input:      text,
			Output:     output,
			Language:   language,
			DurationMS: durationMS,
		}
		go func() {
			ctx, cancel := contextWithTimeout(5 * time.Second)
			defer cancel()
			if err := s.history.Insert(ctx, run); err != nil {
				log.Warn("Failed to record pipeline run", zap.Error(err))
			}
		}()
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeStageTrace,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.StageTraceEvent{
			RequestID:    requestID,
			Language:     language,
			Input:        text,
			Output:       output,
			Stages:       stages,
			Cached:       cached,
			ProcessingMS: durationMS,
		},
	})

	resp := chatResponse{
		ID:      "chatcmpl-" + randomHex(12),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   modelID,
		Choices: []chatChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: output},
			FinishReason: "stop",
		}},
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResponses deliberately 404s so clients fall back to the chat
// completions endpoint, which is the only surface the pipeline backs.
func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "Not found")
}

// handleModels handles the OpenAI-compatible model listing
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data": []map[string]interface{}{
			{
				"id":       modelID,
				"object":   "model",
				"created":  0,
				"owned_by": "local",
			},
		},
	})
}

// handleHistory returns recent pipeline runs from the history store.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONError(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to load run history", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   runs,
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":             "cleanscribe",
		"version":          "0.1.0",
		"default_language": s.config.Pipeline.DefaultLanguage,
		"languages":        s.config.Pipeline.Languages,
		"cache_enabled":    s.cache != nil,
		"history_enabled":  s.history != nil,
		"uptime":           time.Since(s.startTime).Round(time.Second).String(),
		"total_requests":   s.totalRequests.Load(),
		"memory_mb":        float64(mem.Alloc) / 1024 / 1024,
		"ws_clients":       s.wsHub.GetStats().ActiveConnections,
	})
}

// runPipeline resolves the result for one transcript, consulting the
// cache first when one is configured. The cache lookup key carries the
// current user-rule fingerprint, so replacement edits invalidate hits.
func (s *Server) runPipeline(r *http.Request, text, requestID string) (output, language string, stages []pipeline.StageTrace, cached bool) {
	log := s.logger.WithRequestID(requestID)

	var key string
	if s.cache != nil {
		var fp uint64
		if s.store != nil {
			fp = s.store.Fingerprint()
		}
		key = s.cache.Key(text, fp)
		if entry := s.cache.Get(r.Context(), key); entry != nil {
			log.Debug("Cache hit", zap.String("language", entry.Language))
			return entry.Output, entry.Language, entry.Stages, true
		}
	}

	res := s.pipeline.Run(r.Context(), text)
	if s.cache != nil {
		s.cache.Set(r.Context(), key, res)
	}
	return res.Output, res.Language, res.Stages, false
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// randomHex returns n hex characters of cryptographic randomness.
func randomHex(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n)
	}
	return hex.EncodeToString(buf)[:n]
}
