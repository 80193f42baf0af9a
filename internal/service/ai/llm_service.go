package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/config"
	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/model/persona"
)

const (
	// DefaultRoleMarker prefixes the persona's line in model output.
	DefaultRoleMarker = "Оданн:"
	// MaxReplyRunes caps an extracted reply.
	MaxReplyRunes = 500
	historyLimit  = 10
)

// ErrMalformedReply is returned when the model output has no usable reply.
var ErrMalformedReply = errors.New("ai: malformed reply")

// Request is everything the model sees for one turn.
type Request struct {
	Persona  persona.Persona
	Scenario string
	Emotion  emotion.Tag
	Empathy  int
	History  []chat.Exchange
	Message  string
}

// Service wraps a chat model in a prompt chain and extracts the persona's
// line from its output.
type Service struct {
	chatModel  model.BaseChatModel
	cfg        config.AIConfig
	chain      compose.Runnable[map[string]any, *schema.Message]
	prompts    *PersonaPromptManager
	roleMarker string
	logger     *zap.Logger
}

// NewService compiles the generation chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	marker := strings.TrimSpace(cfg.RoleMarker)
	if marker == "" {
		marker = DefaultRoleMarker
	}

	return &Service{
		chatModel:  chatModel,
		cfg:        cfg,
		chain:      runnable,
		prompts:    NewPersonaPromptManager(),
		roleMarker: marker,
		logger:     logger.Named("ai"),
	}, nil
}

// NewFromConfig builds the Ark model described by cfg and wraps it.
func NewFromConfig(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewService(ctx, chatModel, cfg, logger)
}

// RoleMarker returns the marker replies are extracted by.
func (s *Service) RoleMarker() string {
	return s.roleMarker
}

// Generate runs the chain and returns the extracted persona reply.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(req))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", ErrMalformedReply
	}

	reply, err := ExtractReply(response.Content, s.roleMarker)
	if err != nil {
		s.logger.Warn("model output rejected",
			zap.String("persona", req.Persona.ID),
			zap.Int("raw_length", len(response.Content)),
		)
		return "", err
	}

	s.logger.Debug("generated reply",
		zap.String("persona", req.Persona.ID),
		zap.Int("history", len(req.History)),
		zap.Int("length", utf8.RuneCountInString(reply)),
	)
	return reply, nil
}

// ExtractReply returns the text after the last occurrence of marker with
// whitespace collapsed, truncated to MaxReplyRunes.
func ExtractReply(raw, marker string) (string, error) {
	if marker == "" {
		marker = DefaultRoleMarker
	}
	idx := strings.LastIndex(raw, marker)
	if idx < 0 {
		return "", ErrMalformedReply
	}

	text := strings.Join(strings.Fields(raw[idx+len(marker):]), " ")
	if text == "" {
		return "", ErrMalformedReply
	}
	if utf8.RuneCountInString(text) > MaxReplyRunes {
		text = strings.TrimSpace(string([]rune(text)[:MaxReplyRunes]))
	}
	return text, nil
}

func (s *Service) buildChainInput(req Request) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(req, s.roleMarker),
		"history": s.buildHistoryMessages(req.History),
		"query":   req.Message,
	}
}

func (s *Service) buildHistoryMessages(exchanges []chat.Exchange) []*schema.Message {
	if len(exchanges) == 0 {
		return nil
	}

	startIdx := 0
	if len(exchanges) > historyLimit {
		startIdx = len(exchanges) - historyLimit
	}

	history := make([]*schema.Message, 0, len(exchanges)-startIdx)
	for _, ex := range exchanges[startIdx:] {
		switch ex.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(ex.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(s.roleMarker+" "+ex.Text, nil))
		}
	}
	return history
}
