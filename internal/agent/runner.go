package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"food-analyzer-backend/internal/config"
	"food-analyzer-backend/internal/types"
)

// ChatCompleter is the part of the provider client a run needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RunConfig bundles the provider settings shared by every run. It is built
// once at startup and never mutated.
type RunConfig struct {
	Model           string
	Provider        string
	Client          ChatCompleter
	TracingDisabled bool
	Tracer          trace.Tracer
	// Timeout bounds a single provider call; zero inherits the transport's
	// behaviour.
	Timeout time.Duration
}

// NewRunConfig builds an OpenAI-compatible client pointed at the configured
// base URL.
func NewRunConfig(cfg config.Config, tracer trace.Tracer) RunConfig {
	oc := openai.DefaultConfig(cfg.APIKey)
	// go-openai appends paths starting with "/".
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return RunConfig{
		Model:           cfg.Model,
		Provider:        providerName(cfg.BaseURL),
		Client:          openai.NewClientWithConfig(oc),
		TracingDisabled: cfg.TracingDisabled,
		Tracer:          tracer,
		Timeout:         cfg.UpstreamTimeout,
	}
}

func providerName(baseURL string) string {
	switch {
	case strings.Contains(baseURL, "generativelanguage.googleapis.com"):
		return "gemini"
	case strings.Contains(baseURL, "api.openai.com"):
		return "openai"
	default:
		return "openai_compatible"
	}
}

// Result is the outcome of one agent run.
type Result struct {
	RunID       string
	FinalOutput string
	Model       string
	Usage       openai.Usage
}

type Runner struct {
	cfg    RunConfig
	tracer trace.Tracer
}

func NewRunner(cfg RunConfig) (*Runner, error) {
	if cfg.Client == nil {
		return nil, errors.New("agent: client must not be nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("agent: model must not be empty")
	}
	tracer := cfg.Tracer
	if cfg.TracingDisabled || tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Runner{cfg: cfg, tracer: tracer}, nil
}

// Run performs a single model turn as agent a over the supplied conversation
// and returns the model's final text. Provider errors are returned wrapped and
// are never retried.
func (r *Runner) Run(ctx context.Context, a Agent, input []types.Message) (Result, error) {
	msgs, err := convertMessages(input)
	if err != nil {
		return Result{}, err
	}
	chat := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if instr := strings.TrimSpace(a.Instructions); instr != "" {
		chat = append(chat, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: instr})
	}
	chat = append(chat, msgs...)

	runID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.name", a.Name),
		attribute.String("agent.run_id", runID),
		attribute.String("gen_ai.system", r.cfg.Provider),
		attribute.String("gen_ai.request.model", r.cfg.Model),
		attribute.Int("agent.input_messages", len(input)),
	))
	defer span.End()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.cfg.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Messages:    chat,
		Temperature: a.requestTemperature(),
		MaxTokens:   a.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status, ok := UpstreamStatus(err); ok {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		return Result{}, fmt.Errorf("agent %q run %s: %w", a.Name, runID, err)
	}
	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return Result{}, fmt.Errorf("agent %q run %s: %w", a.Name, runID, ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	out := finalOutput(choice.Message)
	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.String("gen_ai.response.finish_reason", string(choice.FinishReason)),
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
	)
	slog.Debug("agent run complete",
		"agent", a.Name,
		"run_id", runID,
		"model", r.cfg.Model,
		"finish_reason", choice.FinishReason,
		"duration", time.Since(start),
	)
	return Result{RunID: runID, FinalOutput: out, Model: resp.Model, Usage: resp.Usage}, nil
}

func finalOutput(m openai.ChatCompletionMessage) string {
	if m.Content != "" || len(m.MultiContent) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
