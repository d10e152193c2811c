package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/metrics"
	"github.com/sandevgo/tuskagent/pkg/retry"
)

// Generator adapts a chat provider to single-prompt generation.
type Generator struct {
	provider core.AIProvider
	name     string
	system   string
	retrier  *retry.Retrier
}

type GeneratorOption func(*Generator)

// WithSystemPrompt sends system ahead of every prompt.
func WithSystemPrompt(system string) GeneratorOption {
	return func(g *Generator) {
		g.system = system
	}
}

func WithGeneratorRetrier(r *retry.Retrier) GeneratorOption {
	return func(g *Generator) {
		g.retrier = r
	}
}

func NewGenerator(provider core.AIProvider, name string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider: provider,
		name:     name,
		retrier:  retry.NewDefaultRetrier(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, prompt, tenantID string, opts core.GenerateOptions) (core.Generation, error) {
	logger := log.FromCtx(ctx).With().
		Str("provider", g.name).
		Str("tenant_id", tenantID).
		Logger()

	history := make([]core.Message, 0, 2)
	if g.system != "" {
		history = append(history, core.Message{Role: core.RoleSystem, Content: g.system})
	}
	history = append(history, core.Message{Role: core.RoleUser, Content: prompt})

	var reply core.Message
	start := time.Now()
	err := g.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		reply, err = g.provider.Chat(ctx, history, opts)
		if err == nil {
			return nil
		}
		var status *StatusError
		if errors.As(err, &status) && !status.Retryable() {
			return retry.Permanent(err)
		}
		logger.Warn().Err(err).Msg("llm request failed")
		return err
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMDuration.WithLabelValues(g.name, status).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error().Err(err).Msg("llm generation failed")
		return core.Generation{}, err
	}

	raw, _ := json.Marshal(reply)
	logger.Debug().
		Int("chars", len(reply.Content)).
		Dur("elapsed", time.Since(start)).
		Msg("llm generation done")

	return core.Generation{Content: reply.Content, Raw: raw}, nil
}
