// Package chat orchestrates inbound messages: FAQ short-circuiting, history
// management, and agent invocation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mzhao28/agentchat/internal/model/chat"
	"github.com/mzhao28/agentchat/internal/service/agent"
	faqservice "github.com/mzhao28/agentchat/internal/service/faq"
	"github.com/mzhao28/agentchat/internal/service/history"
	"github.com/mzhao28/agentchat/internal/service/report"
	"github.com/mzhao28/agentchat/internal/service/session"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrModelNotAllowed = errors.New("invalid model name, kindly select a valid AI model")

	// ErrAgentUnavailable rejects agent-path requests when no engine is
	// configured. Unlike an engine call that fails mid-request, this rejection
	// happens before the user turn is merged, so history stays untouched.
	ErrAgentUnavailable = errors.New("agent engine is not configured")
)

// Response sources.
const (
	SourceFAQ   = "faq"
	SourceAgent = "agent"
)

// Multi-modal input markers.
const (
	OCRHeader     = "[Image Input - OCR Extracted Text:]"
	NoUsableInput = "[No usable input provided]"
)

// Request is one inbound chat message with its per-request settings.
type Request struct {
	SessionID      string
	Model          string
	Provider       string
	SystemPrompt   string
	Text           string
	Tools          agent.Tools
	GenerateReport bool
}

// Result is the composed outcome of one request.
type Result struct {
	Response string
	Source   string
	PDFPath  string
	History  []chat.Turn
}

// Service is the per-request state machine driving the session store, the
// FAQ matcher, and the agent engine.
type Service struct {
	sessions *session.Store
	matcher  *faqservice.Matcher
	engine   agent.Engine    // nil when no provider credentials are configured
	reports  report.Renderer // nil disables report generation
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// NewService wires the orchestrator. engine and reports may be nil.
func NewService(sessions *session.Store, matcher *faqservice.Matcher, engine agent.Engine, reports report.Renderer, allowedModels []string, logger *zap.Logger) *Service {
	allowed := make(map[string]struct{}, len(allowedModels))
	for _, name := range allowedModels {
		allowed[name] = struct{}{}
	}
	return &Service{
		sessions: sessions,
		matcher:  matcher,
		engine:   engine,
		reports:  reports,
		allowed:  allowed,
		logger:   logger,
	}
}

// Validate checks the request shape before any session mutation. Rejections
// here guarantee history is untouched.
func (s *Service) Validate(req Request) (agent.Provider, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyMessage
	}
	if _, ok := s.allowed[req.Model]; !ok {
		return "", ErrModelNotAllowed
	}
	return agent.ParseProvider(req.Provider)
}

// CheckFAQ runs the matcher and, on a hit, records both sides of the exchange
// so later agent calls see FAQ answers as context.
func (s *Service) CheckFAQ(sessionID, text string) (string, bool) {
	answer, ok := s.matcher.Match(text)
	if !ok {
		return "", false
	}

	s.sessions.Append(sessionID, chat.Turn{Role: chat.RoleUser, Content: text})
	s.sessions.Append(sessionID, chat.Turn{Role: chat.RoleAssistant, Content: answer})
	return answer, true
}

// BeginAgentTurn merges the user text into session history (skipping
// duplicate trailing user turns) and returns the flattened transcript the
// engine consumes.
func (s *Service) BeginAgentTurn(sessionID, text string) []string {
	snapshot := s.sessions.Snapshot(sessionID)
	merged, appended := history.Merge(snapshot, text)
	if appended {
		s.sessions.Append(sessionID, merged[len(merged)-1])
	}
	return history.Format(merged)
}

// CompleteAgentTurn records the agent's final text as an assistant turn.
func (s *Service) CompleteAgentTurn(sessionID, finalText string) {
	s.sessions.Append(sessionID, chat.Turn{Role: chat.RoleAssistant, Content: finalText})
}

// EngineConfigured reports whether the agent engine is available.
func (s *Service) EngineConfigured() bool {
	return s.engine != nil
}

// History returns a copy of the session's current turns.
func (s *Service) History(sessionID string) []chat.Turn {
	return s.sessions.Snapshot(sessionID)
}

// HandleMessage processes one inbound message end to end.
func (s *Service) HandleMessage(ctx context.Context, req Request) (Result, error) {
	provider, err := s.Validate(req)
	if err != nil {
		return Result{}, err
	}
	text := strings.TrimSpace(req.Text)

	if answer, ok := s.CheckFAQ(req.SessionID, text); ok {
		s.logger.Info("faq short-circuit",
			zap.String("sessionId", req.SessionID))
		return Result{
			Response: answer,
			Source:   SourceFAQ,
			History:  s.History(req.SessionID),
		}, nil
	}

	if s.engine == nil {
		return Result{}, ErrAgentUnavailable
	}

	transcript := s.BeginAgentTurn(req.SessionID, text)

	final, err := s.engine.Run(ctx, agent.Request{
		Model:        req.Model,
		Provider:     provider,
		SystemPrompt: req.SystemPrompt,
		Transcript:   transcript,
		Tools:        req.Tools,
	})
	if err != nil {
		// The merged user turn stays so a retry resumes cleanly; only the
		// assistant reply is missing.
		return Result{}, fmt.Errorf("agent engine: %w", err)
	}

	s.CompleteAgentTurn(req.SessionID, final)

	pdfPath := ""
	if req.GenerateReport && s.reports != nil {
		path, renderErr := s.reports.Render(final)
		if renderErr != nil {
			// Report failure degrades to an absent pdfPath, never a failed chat.
			s.logger.Warn("report rendering failed", zap.Error(renderErr))
		} else {
			pdfPath = path
		}
	}

	return Result{
		Response: final,
		Source:   SourceAgent,
		PDFPath:  pdfPath,
		History:  s.History(req.SessionID),
	}, nil
}

// StreamAgent starts a streaming agent invocation for an already validated
// request whose user turn has been merged. The caller commits the final text
// via CompleteAgentTurn once the stream is drained.
func (s *Service) StreamAgent(ctx context.Context, req Request, provider agent.Provider, transcript []string) (agent.TextStream, error) {
	if s.engine == nil {
		return nil, ErrAgentUnavailable
	}
	return s.engine.Stream(ctx, agent.Request{
		Model:        req.Model,
		Provider:     provider,
		SystemPrompt: req.SystemPrompt,
		Transcript:   transcript,
		Tools:        req.Tools,
	})
}

// CombineInput folds optional user text and OCR output into a single user
// turn: text first, then the OCR header, then the extracted text. When both
// are empty a placeholder keeps the transcript non-empty.
func CombineInput(text, ocrText string) string {
	text = strings.TrimSpace(text)
	ocrText = strings.TrimSpace(ocrText)

	switch {
	case text == "" && ocrText == "":
		return NoUsableInput
	case ocrText == "":
		return text
	case text == "":
		return OCRHeader + "\n" + ocrText
	default:
		return text + "\n\n" + OCRHeader + "\n" + ocrText
	}
}
