// Package interpreter answers natural-language requests about notebooks and
// tasks, locally when the request shape is recognised and through the
// language model otherwise.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/intent"
	"github.com/starford/taskwise/internal/llm"
	"github.com/starford/taskwise/internal/matcher"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/store"
)

// Pipeline states, logged at debug level.
const (
	stateStart         = "START"
	stateClassifying   = "CLASSIFYING"
	stateFastPath      = "FAST_PATH_HANDLED"
	stateBuildContext  = "BUILDING_CONTEXT"
	stateQueryingModel = "QUERYING_MODEL"
	stateParsing       = "PARSING_RESPONSE"
	stateExecuting     = "EXECUTING_ACTIONS"
)

// Answer paths.
const (
	PathFast  = "fast"
	PathModel = "model"
)

// ModelFactory builds a chat model for one request.
type ModelFactory func(ctx context.Context, apiKey string) (llm.ChatModel, error)

// AskOptions tunes a single request.
type AskOptions struct {
	// APIKey overrides the configured key.
	APIKey string
	// Verbose adds the pipeline details to the rendered answer.
	Verbose bool
}

// Answer is the outcome of one request.
type Answer struct {
	RequestID   string           `json:"request_id"`
	Prompt      string           `json:"prompt"`
	Path        string           `json:"path"`
	Intent      string           `json:"intent,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
	Commands    []string         `json:"commands,omitempty"`
	Results     []command.Result `json:"results"`
}

// Interpreter runs the request pipeline.
type Interpreter struct {
	store    store.TaskStore
	exec     *command.Executor
	cfg      llm.Config
	newModel ModelFactory
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an interpreter that reaches the model configured by cfg.
func New(st store.TaskStore, exec *command.Executor, cfg llm.Config, logger *slog.Logger) *Interpreter {
	in := &Interpreter{
		store:  st,
		exec:   exec,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	in.newModel = func(ctx context.Context, apiKey string) (llm.ChatModel, error) {
		m, err := llm.NewChatModel(ctx, cfg, apiKey)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return in
}

// SetModelFactory replaces how chat models are built.
func (in *Interpreter) SetModelFactory(f ModelFactory) { in.newModel = f }

// Ask interprets prompt and returns the rendered answer.
func (in *Interpreter) Ask(ctx context.Context, prompt string, opts AskOptions) (string, error) {
	ans, err := in.Interpret(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	return ans.Render(opts.Verbose), nil
}

// Interpret runs the pipeline for prompt. Only an empty prompt, missing
// credentials and model transport failures are returned as errors; every
// other failure is reported in the answer's results.
func (in *Interpreter) Interpret(ctx context.Context, prompt string, opts AskOptions) (*Answer, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperr.ErrEmptyPrompt
	}

	ans := &Answer{RequestID: strings.ToLower(ulid.Make().String()), Prompt: prompt}
	logger := in.logger.With(slog.String("request_id", ans.RequestID))
	logState(logger, stateStart, slog.String("prompt", prompt))

	logState(logger, stateClassifying)
	it, ok := intent.Classify(prompt)
	plan := command.Plan{}
	if ok {
		ans.Intent = it.Kind.String()
		handled, err := in.fastPath(ctx, it, ans, &plan)
		if err != nil {
			return nil, err
		}
		if handled {
			ans.Path = PathFast
			logState(logger, stateFastPath, slog.String("intent", ans.Intent), slog.Int("results", len(ans.Results)))
			return ans, nil
		}
	}

	if err := in.modelPath(ctx, prompt, opts, plan, ans, logger); err != nil {
		return nil, err
	}
	return ans, nil
}

func (in *Interpreter) modelPath(ctx context.Context, prompt string, opts AskOptions, plan command.Plan, ans *Answer, logger *slog.Logger) error {
	ans.Path = PathModel

	apiKey, err := llm.ResolveAPIKey(opts.APIKey, in.cfg)
	if err != nil {
		return err
	}

	logState(logger, stateBuildContext, slog.Int("matches", len(plan.Matches)), slog.String("target_status", string(plan.TargetStatus)))
	c, err := llm.BuildContext(in.store, plan.Matches, plan.TargetStatus)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	logState(logger, stateQueryingModel, slog.String("driver", in.cfg.Driver), slog.String("model", in.cfg.Model))
	m, err := in.newModel(ctx, apiKey)
	if err != nil {
		return &apperr.TransportError{Err: fmt.Errorf("init chat model: %w", err)}
	}
	resp, err := llm.NewGateway(m, in.cfg.Timeout, logger).Invoke(ctx, prompt, c)
	if err != nil {
		return err
	}

	logState(logger, stateParsing, slog.Int("commands", len(resp.Commands)), slog.Int("actions", len(resp.Actions)))
	plan.Commands = resp.Commands
	plan.Actions = resp.Actions
	ans.Commands = resp.Commands
	ans.Explanation = resp.Explanation

	logState(logger, stateExecuting)
	ans.Results = in.exec.ExecuteBatch(ctx, plan)
	return nil
}

// resolveMatches finds the tasks a movement request refers to.
func (in *Interpreter) resolveMatches(prompt string) ([]models.Task, error) {
	matches, err := matcher.Resolve(in.store, prompt)
	if err != nil {
		return nil, fmt.Errorf("match tasks: %w", err)
	}
	return matches, nil
}

func logState(logger *slog.Logger, state string, attrs ...any) {
	logger.Debug("ask state", append([]any{slog.String("state", state)}, attrs...)...)
}
