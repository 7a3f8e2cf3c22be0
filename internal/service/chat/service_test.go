package chat_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	chatmodel "github.com/mzhao28/agentchat/internal/model/chat"
	faqmodel "github.com/mzhao28/agentchat/internal/model/faq"
	"github.com/mzhao28/agentchat/internal/service/agent"
	chatservice "github.com/mzhao28/agentchat/internal/service/chat"
	faqservice "github.com/mzhao28/agentchat/internal/service/faq"
	"github.com/mzhao28/agentchat/internal/service/report"
	"github.com/mzhao28/agentchat/internal/service/session"
)

var allowedModels = []string{"gpt-4o-mini", "llama3-70b-8192"}

type stubEngine struct {
	calls    int
	response string
	err      error
	lastReq  agent.Request
}

func (s *stubEngine) Run(_ context.Context, req agent.Request) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubEngine) Stream(_ context.Context, req agent.Request) (agent.TextStream, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &sliceStream{chunks: []string{s.response}}, nil
}

type sliceStream struct {
	chunks []string
	next   int
}

func (s *sliceStream) Recv() (string, error) {
	if s.next >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.next]
	s.next++
	return chunk, nil
}

func (s *sliceStream) Close() {}

type stubRenderer struct {
	calls int
	path  string
	err   error
}

func (s *stubRenderer) Render(string) (string, error) {
	s.calls++
	return s.path, s.err
}

func newTestService(engine agent.Engine, renderer report.Renderer) (*chatservice.Service, *session.Store) {
	store := session.NewStore(20)
	matcher := faqservice.NewMatcher(faqmodel.NewMemoryStore(faqmodel.Seed()), faqservice.DefaultThreshold)
	svc := chatservice.NewService(store, matcher, engine, renderer, allowedModels, zap.NewNop())
	return svc, store
}

func agentRequest(text string) chatservice.Request {
	return chatservice.Request{
		SessionID: "s1",
		Model:     "gpt-4o-mini",
		Provider:  "openai",
		Text:      text,
	}
}

func TestHandleMessageFAQShortCircuit(t *testing.T) {
	engine := &stubEngine{response: "should not be used"}
	svc, store := newTestService(engine, nil)

	result, err := svc.HandleMessage(context.Background(), agentRequest("What is your refund policy?"))
	require.NoError(t, err)

	assert.Equal(t, chatservice.SourceFAQ, result.Source)
	assert.Equal(t, faqmodel.Seed()[0].Answer, result.Response)
	assert.Zero(t, engine.calls, "agent engine must not run on an FAQ hit")

	turns := store.Snapshot("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, chatmodel.RoleUser, turns[0].Role)
	assert.Equal(t, chatmodel.RoleAssistant, turns[1].Role)
	assert.Equal(t, result.Response, turns[1].Content)
}

func TestHandleMessageAgentPath(t *testing.T) {
	engine := &stubEngine{response: "Mars is cold."}
	svc, store := newTestService(engine, nil)

	result, err := svc.HandleMessage(context.Background(), agentRequest("How cold is Mars right now?"))
	require.NoError(t, err)

	assert.Equal(t, chatservice.SourceAgent, result.Source)
	assert.Equal(t, "Mars is cold.", result.Response)
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, []string{"User: How cold is Mars right now?"}, engine.lastReq.Transcript)
	assert.Equal(t, agent.ProviderOpenAI, engine.lastReq.Provider)

	turns := store.Snapshot("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "Mars is cold.", turns[1].Content)
}

func TestHandleMessageToolFlagsReachEngine(t *testing.T) {
	engine := &stubEngine{response: "ok"}
	svc, _ := newTestService(engine, nil)

	req := agentRequest("compare recent arxiv papers on quantization")
	req.Tools = agent.Tools{Search: true, AcademicSearch: true}

	_, err := svc.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, engine.lastReq.Tools.Search)
	assert.True(t, engine.lastReq.Tools.AcademicSearch)
}

func TestHandleMessageRejectsDisallowedModel(t *testing.T) {
	engine := &stubEngine{response: "ok"}
	svc, store := newTestService(engine, nil)

	// Seed some history first.
	_, err := svc.HandleMessage(context.Background(), agentRequest("hello there agent"))
	require.NoError(t, err)
	before := store.Snapshot("s1")

	req := agentRequest("another question")
	req.Model = "made-up-model"
	_, err = svc.HandleMessage(context.Background(), req)
	require.ErrorIs(t, err, chatservice.ErrModelNotAllowed)

	assert.Equal(t, before, store.Snapshot("s1"), "rejected request must not touch history")
	assert.Equal(t, 1, engine.calls)
}

func TestHandleMessageRejectsUnknownProvider(t *testing.T) {
	engine := &stubEngine{response: "ok"}
	svc, store := newTestService(engine, nil)

	req := agentRequest("hello?")
	req.Provider = "ollama"
	_, err := svc.HandleMessage(context.Background(), req)
	require.ErrorIs(t, err, agent.ErrUnsupportedProvider)
	assert.Empty(t, store.Snapshot("s1"))
	assert.Zero(t, engine.calls)
}

func TestHandleMessageRejectsEmptyText(t *testing.T) {
	svc, store := newTestService(&stubEngine{}, nil)

	_, err := svc.HandleMessage(context.Background(), agentRequest("   "))
	require.ErrorIs(t, err, chatservice.ErrEmptyMessage)
	assert.Empty(t, store.Snapshot("s1"))
}

func TestHandleMessageAgentFailureKeepsUserTurn(t *testing.T) {
	engine := &stubEngine{err: errors.New("provider timeout")}
	svc, store := newTestService(engine, nil)

	_, err := svc.HandleMessage(context.Background(), agentRequest("flaky question"))
	require.Error(t, err)

	turns := store.Snapshot("s1")
	require.Len(t, turns, 1)
	assert.Equal(t, chatmodel.RoleUser, turns[0].Role)

	// A retry with the same text resumes cleanly: the user turn dedups and
	// only the assistant reply is added.
	engine.err = nil
	engine.response = "recovered"
	result, err := svc.HandleMessage(context.Background(), agentRequest("flaky question"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Response)

	turns = store.Snapshot("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "flaky question", turns[0].Content)
	assert.Equal(t, "recovered", turns[1].Content)
}

func TestHandleMessageAgentUnavailable(t *testing.T) {
	svc, store := newTestService(nil, nil)

	// FAQ still answers without an engine.
	result, err := svc.HandleMessage(context.Background(), agentRequest("What is your refund policy?"))
	require.NoError(t, err)
	assert.Equal(t, chatservice.SourceFAQ, result.Source)

	// Anything else reports the engine as unavailable, pre-merge.
	before := store.Snapshot("s1")
	_, err = svc.HandleMessage(context.Background(), agentRequest("explain goroutines"))
	require.ErrorIs(t, err, chatservice.ErrAgentUnavailable)
	assert.Equal(t, before, store.Snapshot("s1"))
}

func TestHandleMessageReportGeneration(t *testing.T) {
	engine := &stubEngine{response: "full answer"}
	renderer := &stubRenderer{path: "pdfs/report_test.pdf"}
	svc, _ := newTestService(engine, renderer)

	req := agentRequest("write a summary for me")
	req.GenerateReport = true

	result, err := svc.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "pdfs/report_test.pdf", result.PDFPath)
	assert.Equal(t, 1, renderer.calls)
}

func TestHandleMessageFAQSkipsReport(t *testing.T) {
	renderer := &stubRenderer{path: "pdfs/report_test.pdf"}
	svc, _ := newTestService(&stubEngine{}, renderer)

	req := agentRequest("What is your refund policy?")
	req.GenerateReport = true

	result, err := svc.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, chatservice.SourceFAQ, result.Source)
	assert.Empty(t, result.PDFPath)
	assert.Zero(t, renderer.calls, "report generation is only wired on the agent path")
}

func TestHandleMessageReportFailureDegrades(t *testing.T) {
	engine := &stubEngine{response: "answer"}
	renderer := &stubRenderer{err: errors.New("disk full")}
	svc, _ := newTestService(engine, renderer)

	req := agentRequest("write a summary for me")
	req.GenerateReport = true

	result, err := svc.HandleMessage(context.Background(), req)
	require.NoError(t, err, "report failure must not fail the chat")
	assert.Equal(t, "answer", result.Response)
	assert.Empty(t, result.PDFPath)
}

func TestHandleMessageHistoryBound(t *testing.T) {
	engine := &stubEngine{response: "reply"}
	svc, store := newTestService(engine, nil)

	for i := 1; i <= 21; i++ {
		req := agentRequest(fmt.Sprintf("distinct question number %d", i))
		_, err := svc.HandleMessage(context.Background(), req)
		require.NoError(t, err)
	}

	turns := store.Snapshot("s1")
	require.Len(t, turns, store.Capacity())
	// 42 appends against capacity 20 keeps the tail: the oldest surviving
	// turn is the user message from round 12.
	assert.Equal(t, chatmodel.RoleUser, turns[0].Role)
	assert.Equal(t, "distinct question number 12", turns[0].Content)
	assert.Equal(t, "reply", turns[len(turns)-1].Content)
}

func TestCombineInput(t *testing.T) {
	cases := []struct {
		name string
		text string
		ocr  string
		want string
	}{
		{
			name: "both empty",
			want: chatservice.NoUsableInput,
		},
		{
			name: "text only",
			text: "just text",
			want: "just text",
		},
		{
			name: "ocr only",
			ocr:  "Hello world",
			want: "[Image Input - OCR Extracted Text:]\nHello world",
		},
		{
			name: "text and ocr",
			text: "see attached",
			ocr:  "Hello world",
			want: "see attached\n\n[Image Input - OCR Extracted Text:]\nHello world",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, chatservice.CombineInput(tc.text, tc.ocr))
		})
	}
}
