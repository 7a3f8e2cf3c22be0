package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/mzhao28/agentchat/internal/config"
)

// Service implements Engine with an eino ReAct agent over OpenAI-protocol
// chat models. Groq is served through its OpenAI-compatible endpoint.
type Service struct {
	cfg    config.AgentConfig
	logger *zap.Logger
}

// NewService creates the agent engine.
func NewService(cfg config.AgentConfig, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Run executes the agent loop and returns the trimmed final text.
func (s *Service) Run(ctx context.Context, req Request) (string, error) {
	ra, err := s.buildAgent(ctx, req)
	if err != nil {
		return "", err
	}

	out, err := ra.Generate(ctx, s.buildMessages(req))
	if err != nil {
		return "", fmt.Errorf("agent generation failed: %w", err)
	}

	final := strings.TrimSpace(out.Content)
	if final == "" {
		final = FallbackResponse
	}

	s.logger.Info("agent run finished",
		zap.String("model", req.Model),
		zap.String("provider", string(req.Provider)),
		zap.Int("transcriptLen", len(req.Transcript)),
		zap.Int("responseLen", len(final)))
	return final, nil
}

// Stream executes the agent loop and yields response chunks.
func (s *Service) Stream(ctx context.Context, req Request) (TextStream, error) {
	ra, err := s.buildAgent(ctx, req)
	if err != nil {
		return nil, err
	}

	sr, err := ra.Stream(ctx, s.buildMessages(req))
	if err != nil {
		return nil, fmt.Errorf("agent streaming failed: %w", err)
	}
	return &einoStream{reader: sr}, nil
}

func (s *Service) buildAgent(ctx context.Context, req Request) (*react.Agent, error) {
	chatModel, err := s.newChatModel(ctx, req.Model, req.Provider)
	if err != nil {
		return nil, err
	}

	tools, err := s.assembleTools(ctx, req.Tools)
	if err != nil {
		return nil, err
	}

	ra, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tools},
		MaxStep:          s.cfg.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build react agent: %w", err)
	}
	return ra, nil
}

func (s *Service) newChatModel(ctx context.Context, modelID string, provider Provider) (model.ToolCallingChatModel, error) {
	switch provider {
	case ProviderGroq:
		if s.cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("groq provider requested but GROQ_API_KEY is not set")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: s.cfg.GroqBaseURL,
			APIKey:  s.cfg.GroqAPIKey,
			Model:   modelID,
		})
	case ProviderOpenAI:
		if s.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requested but OPENAI_API_KEY is not set")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: s.cfg.OpenAIBaseURL,
			APIKey:  s.cfg.OpenAIAPIKey,
			Model:   modelID,
		})
	default:
		return nil, ErrUnsupportedProvider
	}
}

// assembleTools resolves the per-request capability flags into eino tools.
func (s *Service) assembleTools(ctx context.Context, flags Tools) ([]tool.BaseTool, error) {
	var tools []tool.BaseTool

	if flags.Search {
		searchTool, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
			MaxResults: s.cfg.SearchMaxResults,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create search tool: %w", err)
		}
		tools = append(tools, searchTool)
	}

	if flags.AcademicSearch {
		arxivTool, err := newArxivTool(s.cfg.ArxivMaxResults, s.cfg.ArxivMaxChars)
		if err != nil {
			return nil, fmt.Errorf("failed to create arxiv tool: %w", err)
		}
		tools = append(tools, arxivTool)
	}

	return tools, nil
}

// buildMessages maps the flattened transcript onto the agent input. Each
// transcript line is already labelled ("User: …" / "Assistant: …"), so lines
// ride along as user messages after the system prompt.
func (s *Service) buildMessages(req Request) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.Transcript)+1)
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		messages = append(messages, schema.SystemMessage(prompt))
	}
	for _, line := range req.Transcript {
		messages = append(messages, schema.UserMessage(line))
	}
	return messages
}

type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	msg, err := s.reader.Recv()
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (s *einoStream) Close() {
	s.reader.Close()
}
