// Package conversation runs a chat turn end to end: classify, score, ask the
// model, fall back to curated replies, persist.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/empathy"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/reply"
	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/model/persona"
	"github.com/zhouzirui/sky-inn/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
)

const (
	// DefaultGenerationTimeout bounds a single model call.
	DefaultGenerationTimeout = 30 * time.Second
	contextLimit             = 10
)

// Reply sources.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// ErrEmptyMessage rejects blank user input.
var ErrEmptyMessage = errors.New("conversation: message text is empty")

// Generator produces a persona reply from the model.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

// Turn is one incoming user message.
type Turn struct {
	ChatID int64
	UserID int64
	Text   string
}

// Result describes the reply given to a turn.
type Result struct {
	Reply   string       `json:"reply"`
	Emotion emotion.Tag  `json:"emotion"`
	Empathy int          `json:"empathy"`
	Source  string       `json:"source"`
	Message chat.Message `json:"message"`
}

// Options configures a Service. Store, Analyzer, Tracker and Selector are
// required; a nil Generator always falls back to the selector.
type Options struct {
	Store             chatservice.Store
	Analyzer          *emotion.Analyzer
	Tracker           *empathy.Tracker
	Selector          *reply.Selector
	Generator         Generator
	Persona           persona.Persona
	GenerationTimeout time.Duration
	Now               func() time.Time
	Logger            *zap.Logger
}

// Service orchestrates turns. It is safe for concurrent use; turns of the
// same chat run one at a time.
type Service struct {
	store     chatservice.Store
	analyzer  *emotion.Analyzer
	tracker   *empathy.Tracker
	selector  *reply.Selector
	generator Generator
	persona   persona.Persona
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
	locks     *chatLocks
}

// NewService validates opts and builds a Service.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Store == nil:
		return nil, fmt.Errorf("conversation: store is required")
	case opts.Analyzer == nil:
		return nil, fmt.Errorf("conversation: analyzer is required")
	case opts.Tracker == nil:
		return nil, fmt.Errorf("conversation: tracker is required")
	case opts.Selector == nil:
		return nil, fmt.Errorf("conversation: selector is required")
	}

	s := &Service{
		store:     opts.Store,
		analyzer:  opts.Analyzer,
		tracker:   opts.Tracker,
		selector:  opts.Selector,
		generator: opts.Generator,
		persona:   opts.Persona,
		timeout:   opts.GenerationTimeout,
		now:       opts.Now,
		logger:    opts.Logger,
		locks:     newChatLocks(),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultGenerationTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.persona.ID == "" {
		s.persona = persona.Seed()[0]
	}
	s.logger = s.logger.Named("conversation")
	return s, nil
}

// Persona returns the responding persona.
func (s *Service) Persona() persona.Persona {
	return s.persona
}

// Reply handles one user message and stores the resulting turn. The text is
// stored as sent so Forget and Remember match it exactly; the trimmed form is
// classified and sent to the generator. Generation problems never reach the
// caller; only store errors do.
func (s *Service) Reply(ctx context.Context, turn Turn) (Result, error) {
	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	unlock := s.locks.lock(turn.ChatID)
	defer unlock()

	turnID := uuid.NewString()
	log := s.logger.With(zap.String("turn_id", turnID), zap.Int64("chat_id", turn.ChatID))

	conv, err := s.store.GetChat(ctx, turn.ChatID)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.store.GetUser(ctx, turn.UserID); err != nil {
		return Result{}, err
	}
	history, err := s.store.GetChatHistory(ctx, turn.ChatID, false)
	if err != nil {
		return Result{}, err
	}

	tag := s.analyzer.Classify(text)
	previous := 0
	if len(history) > 0 {
		previous = history[len(history)-1].EmpathyLevel
	}
	level := s.tracker.Next(tag, previous, len(history))

	result := Result{Emotion: tag, Empathy: level, Source: SourceGenerated}
	result.Reply = s.generate(ctx, log, ai.Request{
		Persona:  s.persona,
		Scenario: conv.Scenario,
		Emotion:  tag,
		Empathy:  level,
		History:  lastExchanges(history, contextLimit),
		Message:  text,
	})
	if result.Reply == "" {
		result.Source = SourceFallback
		result.Reply = s.selector.SelectInScene(text, level, tag, conv.Scenario, len(history))
	}

	stored, err := s.store.AddMessage(ctx, chat.Message{
		ChatID:       turn.ChatID,
		UserID:       turn.UserID,
		MessageText:  turn.Text,
		ResponseText: result.Reply,
		EmotionTag:   string(tag),
		EmpathyLevel: level,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return Result{}, err
	}
	result.Message = stored

	log.Info("turn handled",
		zap.String("emotion", string(tag)),
		zap.Int("empathy", level),
		zap.String("source", result.Source),
		zap.Int("history", len(history)),
	)
	return result, nil
}

// generate returns the model reply, or "" when the fallback should be used.
func (s *Service) generate(ctx context.Context, log *zap.Logger, req ai.Request) string {
	if s.generator == nil {
		return ""
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	started := time.Now()
	go func() {
		text, err := s.generator.Generate(genCtx, req)
		done <- outcome{text: text, err: err}
	}()

	var text string
	select {
	case <-genCtx.Done():
		log.Warn("generation exceeded deadline, using fallback", zap.Duration("timeout", s.timeout))
		return ""
	case out := <-done:
		if out.err != nil {
			log.Warn("generation failed, using fallback", zap.Error(out.err), zap.Duration("elapsed", time.Since(started)))
			return ""
		}
		text = strings.TrimSpace(out.text)
	}
	if text == "" {
		log.Warn("generation returned empty text, using fallback")
	}
	return text
}

// Forget hides the most recent visible message with this exact text.
func (s *Service) Forget(ctx context.Context, chatID int64, text string) (bool, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	if _, err := s.store.GetChat(ctx, chatID); err != nil {
		return false, err
	}
	changed, err := s.store.IgnoreMessage(ctx, chatID, text)
	if err != nil {
		return false, err
	}
	s.logger.Info("forget", zap.Int64("chat_id", chatID), zap.Bool("changed", changed))
	return changed, nil
}

// Remember restores the most recent ignored message with this exact text.
func (s *Service) Remember(ctx context.Context, chatID int64, text string) (bool, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	if _, err := s.store.GetChat(ctx, chatID); err != nil {
		return false, err
	}
	changed, err := s.store.UnignoreMessage(ctx, chatID, text)
	if err != nil {
		return false, err
	}
	s.logger.Info("remember", zap.Int64("chat_id", chatID), zap.Bool("changed", changed))
	return changed, nil
}

// History returns the chat's messages in order.
func (s *Service) History(ctx context.Context, chatID int64, includeIgnored bool) ([]chat.Message, error) {
	if _, err := s.store.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.store.GetChatHistory(ctx, chatID, includeIgnored)
}

// Context renders the scenario and the last visible exchanges as text.
func (s *Service) Context(ctx context.Context, chatID int64) (string, error) {
	conv, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return "", err
	}
	history, err := s.store.GetChatHistory(ctx, chatID, false)
	if err != nil {
		return "", err
	}
	return FormatContext(conv.Scenario, lastExchanges(history, contextLimit), s.persona.Name), nil
}

// Greeting returns a random opening line.
func (s *Service) Greeting() string {
	return s.selector.Greeting(s.persona.Greetings)
}

// FormatContext renders a scenario header followed by the exchanges.
func FormatContext(scenario string, exchanges []chat.Exchange, personaName string) string {
	var b strings.Builder
	if scenario = strings.TrimSpace(scenario); scenario != "" {
		fmt.Fprintf(&b, "📖 Сценарий: %s\n\n", scenario)
	}
	if len(exchanges) == 0 {
		return b.String()
	}

	b.WriteString("💬 Последние сообщения:\n")
	for _, ex := range exchanges {
		if ex.Role == chat.RoleUser {
			fmt.Fprintf(&b, "👤 Вы: %s\n", ex.Text)
		} else {
			fmt.Fprintf(&b, "🌸 %s: %s\n", personaName, ex.Text)
		}
	}
	return b.String()
}

func lastExchanges(history []chat.Message, limit int) []chat.Exchange {
	exchanges := chat.Exchanges(history)
	if len(exchanges) > limit {
		exchanges = exchanges[len(exchanges)-limit:]
	}
	return exchanges
}
