// Package app assembles the responder from configuration.
package app

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/empathy"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/reply"
	"github.com/zhouzirui/sky-inn/backend/internal/config"
	"github.com/zhouzirui/sky-inn/backend/internal/model/persona"
	"github.com/zhouzirui/sky-inn/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
)

// App holds the wired services.
type App struct {
	Personas     *persona.MemoryStore
	Store        *chatservice.GormStore
	Conversation *conversation.Service
	AI           *ai.Service
}

// Build wires the responder on top of an open database. When the model is
// not configured, or fails to initialize, every reply comes from the
// curated pools.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rules, err := loadRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	pools, err := loadPools(cfg.Rules)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if cfg.Rules.Seed != nil {
		seed = uint64(*cfg.Rules.Seed)
	}

	personas := persona.NewMemoryStore(persona.Seed())
	active, ok := personas.Resolve(cfg.AI.PersonaID)
	if !ok {
		return nil, fmt.Errorf("no persona configured")
	}

	a := &App{Personas: personas, Store: chatservice.NewGormStore(db)}

	var generator conversation.Generator
	if cfg.AI.Enabled() {
		a.AI, err = ai.NewFromConfig(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("AI service unavailable, replies will use curated pools", zap.Error(err))
		} else {
			generator = a.AI
			logger.Info("AI service initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logger.Info("Ark credentials not configured, replies will use curated pools")
	}

	a.Conversation, err = conversation.NewService(conversation.Options{
		Store:             a.Store,
		Analyzer:          emotion.NewAnalyzer(rules),
		Tracker:           empathy.NewTracker(empathy.DefaultSchedule()),
		Selector:          reply.NewSelector(pools, reply.NewRandPicker(seed)),
		Generator:         generator,
		Persona:           active,
		GenerationTimeout: cfg.AI.GenerationTimeout,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func loadRules(cfg config.RulesConfig) ([]emotion.Rule, error) {
	if cfg.EmotionRulesFile == "" {
		return nil, nil
	}
	return emotion.LoadRulesFile(cfg.EmotionRulesFile)
}

func loadPools(cfg config.RulesConfig) (reply.Pools, error) {
	if cfg.ReplyPoolsFile == "" {
		return nil, nil
	}
	return reply.LoadPoolsFile(cfg.ReplyPoolsFile)
}
