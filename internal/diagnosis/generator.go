// Package diagnosis asks the language model for a repair procedure and maps
// every way that can go wrong to a fixed fallback answer.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"forklift-assistant/internal/llm"
	"forklift-assistant/internal/logging"
)

// FallbackText replaces the answer whenever generation fails.
const FallbackText = "Desculpe, não foi possível gerar uma solução para este problema agora. " +
	"Verifique os itens básicos (bateria, fluidos, fusíveis e conexões) e tente novamente em alguns minutos."

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMinLength = 100
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimeout
	OutcomeAPIError
	OutcomeTooShort
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeAPIError:
		return "api_error"
	case OutcomeTooShort:
		return "too_short"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var ErrTooShort = errors.New("generated text is shorter than the minimum length")

// Result always carries text the user can read: the model output on success,
// FallbackText otherwise.
type Result struct {
	Text    string
	Outcome Outcome
	Err     error
}

func (r Result) Failed() bool { return r.Outcome != OutcomeOK }

type Generator struct {
	client    llm.Client
	timeout   time.Duration
	minLength int
	logger    *zap.Logger
}

func NewGenerator(client llm.Client, timeout time.Duration, minLength int, logger *zap.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if minLength < 0 {
		minLength = DefaultMinLength
	}
	return &Generator{
		client:    client,
		timeout:   timeout,
		minLength: minLength,
		logger:    logging.OrNop(logger).Named("diagnosis"),
	}
}

func (g *Generator) Diagnose(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Generate(ctx, BuildPrompt(req))
	res := g.classify(ctx, resp, err)

	fields := []zap.Field{
		zap.String("equipment", req.Equipment),
		zap.Bool("refinement", req.Refinement != ""),
		zap.Stringer("outcome", res.Outcome),
		zap.Duration("elapsed", time.Since(start)),
	}
	if res.Failed() {
		g.logger.Warn("diagnosis generation failed", append(fields, zap.Error(res.Err))...)
	} else {
		g.logger.Info("diagnosis generated", append(fields,
			zap.String("model", resp.Model),
			zap.Int("total_tokens", resp.TotalTokens))...)
	}
	return res
}

func (g *Generator) classify(ctx context.Context, resp llm.Response, err error) Result {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Text: FallbackText, Outcome: OutcomeTimeout, Err: err}
		}
		return Result{Text: FallbackText, Outcome: OutcomeAPIError, Err: err}
	}
	text := strings.TrimSpace(resp.Content)
	if utf8.RuneCountInString(text) < g.minLength {
		return Result{
			Text:    FallbackText,
			Outcome: OutcomeTooShort,
			Err:     fmt.Errorf("%w: got %d, want %d", ErrTooShort, utf8.RuneCountInString(text), g.minLength),
		}
	}
	return Result{Text: text, Outcome: OutcomeOK}
}
