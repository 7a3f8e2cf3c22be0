package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mzhao28/agentchat/internal/model/chat"
	"github.com/mzhao28/agentchat/internal/service/agent"
	chatservice "github.com/mzhao28/agentchat/internal/service/chat"
	"github.com/mzhao28/agentchat/internal/service/ocr"
	"github.com/mzhao28/agentchat/pkg/utils"
)

// maxImageUploadBytes caps multipart uploads carrying OCR images.
const maxImageUploadBytes = 16 << 20

// Handler exposes the chat endpoints.
type Handler struct {
	svc    *chatservice.Service
	ocr    ocr.Engine
	logger *zap.Logger
}

// New creates the chat handler. ocrEngine may be nil when OCR is disabled.
func New(svc *chatservice.Service, ocrEngine ocr.Engine, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, ocr: ocrEngine, logger: logger}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat_with_image", h.handleChatWithImage)
	r.Post("/chat_with_image_text", h.handleChatWithImage)
	r.Get("/chat/history/{sessionID}", h.handleHistory)
}

type turnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	SessionID     string        `json:"sessionId"`
	ModelName     string        `json:"modelName"`
	ModelProvider string        `json:"modelProvider"`
	SystemPrompt  string        `json:"systemPrompt"`
	Messages      []turnPayload `json:"messages"`
	AllowSearch   bool          `json:"allowSearch"`
	AllowArxiv    bool          `json:"allowArxiv"`
	AllowPDF      bool          `json:"allowPdf"`
}

type chatResponse struct {
	Response string      `json:"response"`
	Source   string      `json:"source"`
	PDFPath  string      `json:"pdfPath,omitempty"`
	History  []chat.Turn `json:"history,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if len(payload.Messages) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	// Clients send the whole running transcript; only the latest entry is
	// the new input, the rest is reconstructed from the session store.
	latest := payload.Messages[len(payload.Messages)-1].Content

	result, err := h.svc.HandleMessage(r.Context(), chatservice.Request{
		SessionID:      payload.SessionID,
		Model:          payload.ModelName,
		Provider:       payload.ModelProvider,
		SystemPrompt:   payload.SystemPrompt,
		Text:           latest,
		Tools:          agent.Tools{Search: payload.AllowSearch, AcademicSearch: payload.AllowArxiv},
		GenerateReport: payload.AllowPDF,
	})
	if err != nil {
		h.respondChatError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Response: result.Response,
		Source:   result.Source,
		PDFPath:  result.PDFPath,
		History:  result.History,
	})
}

func (h *Handler) handleChatWithImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	ocrText := ""
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		imageBytes, readErr := io.ReadAll(file)
		if readErr != nil {
			utils.RespondError(w, http.StatusBadRequest, "failed to read image upload")
			return
		}
		if h.ocr != nil {
			ocrText = h.ocr.ExtractText(r.Context(), imageBytes)
		} else {
			h.logger.Warn("image uploaded but ocr engine is disabled")
		}
	}

	combined := chatservice.CombineInput(r.FormValue("text"), ocrText)

	result, err := h.svc.HandleMessage(r.Context(), chatservice.Request{
		SessionID:      sessionID,
		Model:          r.FormValue("modelName"),
		Provider:       r.FormValue("modelProvider"),
		SystemPrompt:   r.FormValue("systemPrompt"),
		Text:           combined,
		Tools:          agent.Tools{Search: formBool(r, "allowSearch"), AcademicSearch: formBool(r, "allowArxiv")},
		GenerateReport: formBool(r, "allowPdf"),
	})
	if err != nil {
		h.respondChatError(w, err)
		return
	}

	// The multipart variant skips the full history echo.
	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Response: result.Response,
		Source:   result.Source,
		PDFPath:  result.PDFPath,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"history": h.svc.History(sessionID),
	})
}

func (h *Handler) respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrEmptyMessage),
		errors.Is(err, chatservice.ErrModelNotAllowed),
		errors.Is(err, agent.ErrUnsupportedProvider):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatservice.ErrAgentUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "agent request failed")
	}
}

func formBool(r *http.Request, key string) bool {
	val, err := strconv.ParseBool(r.FormValue(key))
	if err != nil {
		return false
	}
	return val
}
