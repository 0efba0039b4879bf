// Package chat orchestrates one question/answer cycle: index bootstrap,
// retrieval, persona routing, prompt assembly, the model call, and the
// session history update.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/dvega/askme/internal/knowledge"
	"github.com/dvega/askme/internal/log"
	"github.com/dvega/askme/internal/persona"
	"github.com/dvega/askme/internal/session"
)

// Bootstrapper makes sure the index is populated before the first
// retrieval. Implementations must be idempotent: repeated runs against a
// populated index are cheap no-ops.
type Bootstrapper interface {
	Run(ctx context.Context) (knowledge.Status, error)
}

// PassageRetriever returns context passages for a query.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]knowledge.Passage, error)
}

// Generator invokes the language model with an ordered message sequence
// and returns the answer text.
type Generator func(ctx context.Context, messages []*ai.Message) (string, error)

// Config assembles an Orchestrator's collaborators.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // full model name, e.g. "googleai/gemini-2.5-flash"

	Bootstrap Bootstrapper
	Retriever PassageRetriever
	Sessions  *session.Store
	Router    *persona.Router

	// MinPassageChars filters near-empty passages out of the assembled
	// context. Zero means the default of 30.
	MinPassageChars int

	// Generate overrides the genkit-backed model call. Tests use this;
	// production leaves it nil.
	Generate Generator

	Retry   RetryConfig
	Limiter *rate.Limiter
	Logger  log.Logger
}

func (c *Config) validate() error {
	if c.Bootstrap == nil {
		return errors.New("chat: Bootstrap is required")
	}
	if c.Retriever == nil {
		return errors.New("chat: Retriever is required")
	}
	if c.Sessions == nil {
		return errors.New("chat: Sessions is required")
	}
	if c.Generate == nil {
		if c.Genkit == nil {
			return errors.New("chat: Genkit is required when no Generator is supplied")
		}
		if c.ModelName == "" {
			return errors.New("chat: ModelName is required when no Generator is supplied")
		}
	}
	return nil
}

// Orchestrator executes the full answer cycle for one question.
type Orchestrator struct {
	bootstrap       Bootstrapper
	retriever       PassageRetriever
	sessions        *session.Store
	router          *persona.Router
	generate        Generator
	minPassageChars int
	retry           RetryConfig
	limiter         *rate.Limiter
	logger          log.Logger
}

// New creates an Orchestrator from a validated Config.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	generate := cfg.Generate
	if generate == nil {
		generate = genkitGenerator(cfg.Genkit, cfg.ModelName)
	}
	router := cfg.Router
	if router == nil {
		router = persona.NewRouter()
	}
	minChars := cfg.MinPassageChars
	if minChars <= 0 {
		minChars = 30
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialInterval == 0 {
		retry = DefaultRetryConfig()
	}
	if retry.AttemptTimeout <= 0 {
		retry.AttemptTimeout = DefaultRetryConfig().AttemptTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{
		bootstrap:       cfg.Bootstrap,
		retriever:       cfg.Retriever,
		sessions:        cfg.Sessions,
		router:          router,
		generate:        generate,
		minPassageChars: minChars,
		retry:           retry,
		limiter:         cfg.Limiter,
		logger:          logger,
	}, nil
}

// Answer runs the full cycle for one question within one session.
//
// The history is updated only on success: the human turn and the answer
// are appended as one atomic pair after generation, so a failed request
// leaves the conversation exactly as it was.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrInvalidInput
	}

	// Index population is shared cross-request state: once started it
	// runs to completion even if this caller goes away.
	status, err := o.bootstrap.Run(context.WithoutCancel(ctx))
	if err != nil {
		return "", fmt.Errorf("bootstrapping index: %w", err)
	}
	if status == knowledge.StatusCompleted {
		o.logger.Info("knowledge index populated on first use")
	}

	route := o.router.Route(question)
	sess := o.sessions.Get(sessionID)

	// Fixed replies are literal by contract. The model never sees them,
	// so it can neither reword nor miscompute them.
	if route.Mode == persona.ModeFixed {
		sess.AppendExchange(question, route.Reply)
		return route.Reply, nil
	}

	contextText, err := o.buildContext(ctx, route, question)
	if err != nil {
		return "", err
	}

	history := sess.Snapshot()
	messages := persona.Assemble(route, contextText, history, question)

	answer, err := o.generateWithRetry(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: model returned empty output", ErrGeneration)
	}

	sess.AppendExchange(question, answer)
	o.logger.Info("answered question",
		"rule", route.Rule, "mode", string(route.Mode), "lang", string(route.Lang),
		"history_len", sess.Len())
	return answer, nil
}

// Reset clears the history of one session.
func (o *Orchestrator) Reset(sessionID string) {
	o.sessions.Reset(sessionID)
}

// buildContext retrieves and formats the context block for routes that
// use it. The general route gets none: a neutral assistant must not draw
// on the persona's private material, so the passages are never fetched.
func (o *Orchestrator) buildContext(ctx context.Context, route persona.Route, question string) (string, error) {
	if route.Mode == persona.ModeGeneral {
		return "", nil
	}

	passages, err := o.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		// Near-empty chunks add noise, not signal.
		if len(p.Text) <= o.minPassageChars {
			continue
		}
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}

// genkitGenerator adapts genkit.Generate to the Generator contract.
func genkitGenerator(g *genkit.Genkit, modelName string) Generator {
	return func(ctx context.Context, messages []*ai.Message) (string, error) {
		resp, err := genkit.Generate(ctx, g,
			ai.WithModelName(modelName),
			ai.WithMessages(messages...),
		)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
}
