// Package stream serves agent responses over Server-Sent Events.
package stream

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mzhao28/agentchat/internal/service/agent"
	chatservice "github.com/mzhao28/agentchat/internal/service/chat"
	"github.com/mzhao28/agentchat/pkg/utils"
)

// Handler streams chat replies chunk by chunk. FAQ hits arrive as a single
// chunk; agent replies stream as the engine produces them.
type Handler struct {
	svc    *chatservice.Service
	logger *zap.Logger
}

// New creates the stream handler.
func New(svc *chatservice.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the streaming route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream/{sessionID}", h.handleStream)
}

// event is one SSE payload.
type event struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Source   string `json:"source,omitempty"`
	Error    string `json:"error,omitempty"`
	Finished bool   `json:"finished,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req := chatservice.Request{
		SessionID:    chi.URLParam(r, "sessionID"),
		Model:        r.URL.Query().Get("model"),
		Provider:     r.URL.Query().Get("provider"),
		SystemPrompt: r.URL.Query().Get("systemPrompt"),
		Text:         r.URL.Query().Get("message"),
		Tools: agent.Tools{
			Search:         queryBool(r, "search"),
			AcademicSearch: queryBool(r, "arxiv"),
		},
	}

	// Validation failures are plain HTTP errors; the stream never opens.
	provider, err := h.svc.Validate(req)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := strings.TrimSpace(req.Text)
	answer, faqHit := h.svc.CheckFAQ(req.SessionID, text)
	if !faqHit && !h.svc.EngineConfigured() {
		utils.RespondError(w, http.StatusServiceUnavailable, chatservice.ErrAgentUnavailable.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, event{Event: "start"})

	if faqHit {
		utils.SendSSEChunk(w, flusher, event{Event: "chunk", Content: answer, Source: chatservice.SourceFAQ})
		utils.SendSSEChunk(w, flusher, event{Event: "done", Source: chatservice.SourceFAQ, Finished: true})
		return
	}

	transcript := h.svc.BeginAgentTurn(req.SessionID, text)

	stream, err := h.svc.StreamAgent(r.Context(), req, provider, transcript)
	if err != nil {
		h.logger.Error("failed to start agent stream", zap.Error(err))
		utils.SendSSEChunk(w, flusher, event{Event: "error", Error: "agent request failed"})
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			// History keeps the merged user turn only; a retry resumes cleanly.
			h.logger.Error("agent stream failed", zap.Error(recvErr))
			utils.SendSSEChunk(w, flusher, event{Event: "error", Error: "agent request failed"})
			return
		}
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		utils.SendSSEChunk(w, flusher, event{Event: "chunk", Content: chunk, Source: chatservice.SourceAgent})
	}

	final := strings.TrimSpace(full.String())
	if final == "" {
		final = agent.FallbackResponse
	}
	h.svc.CompleteAgentTurn(req.SessionID, final)

	utils.SendSSEChunk(w, flusher, event{Event: "done", Content: final, Source: chatservice.SourceAgent, Finished: true})
}

func queryBool(r *http.Request, key string) bool {
	val, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return false
	}
	return val
}
