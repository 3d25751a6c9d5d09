package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/mira/internal/brain"
	"github.com/antoniostano/mira/internal/memory"
	"github.com/antoniostano/mira/internal/observability"
	"github.com/antoniostano/mira/internal/prompt"
	"github.com/antoniostano/mira/internal/retrieval"
	"github.com/antoniostano/mira/internal/safety"
)

// State names one node of the per-turn state machine.
type State string

const (
	StateReceived        State = "received"
	StateInputChecked    State = "input_checked"
	StateContextGathered State = "context_gathered"
	StatePromptBuilt     State = "prompt_built"
	StateModelInvoked    State = "model_invoked"
	StateOutputChecked   State = "output_checked"

	// Terminal states. Every terminal state records the interaction,
	// refusals included, so the audit trail is complete.
	StateBlocked   State = "blocked"
	StateFailed    State = "failed"
	StateDelivered State = "delivered"
)

// TurnRequest is one question plus the already-resolved emotion signal.
type TurnRequest struct {
	SessionID  string
	Question   string
	Emotion    string
	Confidence float64
	Age        int
}

// TurnResult is the outcome returned to the caller. Response is always
// safe to show: a refusal, a redirect, a fallback or the validated answer.
type TurnResult struct {
	TurnID        string
	State         State
	Response      string
	InputVerdict  safety.Verdict
	OutputVerdict safety.Verdict
	Flagged       bool
}

// Options tunes one pipeline instance.
type Options struct {
	TopK          int
	SnippetBudget int
	ModelTimeout  time.Duration
	MaxTokens     int
	Temperature   float64
}

const (
	defaultTopK          = 3
	defaultSnippetBudget = 900
	defaultModelTimeout  = 8 * time.Second
	defaultMaxTokens     = 200
	recordTimeout        = 5 * time.Second
)

// Pipeline mediates one conversation turn end to end: input safety,
// consented memory, retrieval, prompt assembly, model call, output safety,
// audit. Instances are safe for concurrent use across sessions; the memory
// manager serializes writes per session.
type Pipeline struct {
	classifier *safety.Classifier
	memory     *memory.Manager
	retriever  *retrieval.Retriever
	assembler  *prompt.Assembler
	adapter    brain.Adapter
	metrics    *observability.Metrics
	opts       Options
}

func New(
	classifier *safety.Classifier,
	memoryManager *memory.Manager,
	retriever *retrieval.Retriever,
	assembler *prompt.Assembler,
	adapter brain.Adapter,
	metrics *observability.Metrics,
	opts Options,
) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.SnippetBudget <= 0 {
		opts.SnippetBudget = defaultSnippetBudget
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = defaultModelTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Pipeline{
		classifier: classifier,
		memory:     memoryManager,
		retriever:  retriever,
		assembler:  assembler,
		adapter:    adapter,
		metrics:    metrics,
		opts:       opts,
	}
}

// RunTurn drives the state machine for one question.
func (p *Pipeline) RunTurn(ctx context.Context, req TurnRequest) TurnResult {
	start := time.Now()
	result := TurnResult{TurnID: uuid.NewString(), State: StateReceived}

	emotion, known := prompt.ParseEmotion(req.Emotion)
	if !known && req.Emotion != "" {
		log.Printf("pipeline: unknown emotion label %q, using neutral", req.Emotion)
	}

	// Input check.
	checkStart := time.Now()
	result.InputVerdict = p.classifier.Classify(req.Question, req.Age, safety.DirectionInput)
	p.observeStage("input_check", checkStart)
	p.countSafety(safety.DirectionInput, result.InputVerdict)
	result.State = StateInputChecked

	switch result.InputVerdict.Action {
	case safety.ActionBlock:
		result.State = StateBlocked
		result.Response = safety.RefusalResponse(req.Age)
		p.finishTurn(ctx, req, emotion, &result, start)
		return result
	case safety.ActionRedirect:
		result.State = StateBlocked
		result.Response = safety.RedirectResponse(result.InputVerdict.MatchedCategory, req.Age)
		p.finishTurn(ctx, req, emotion, &result, start)
		return result
	case safety.ActionFlag:
		result.Flagged = true
		p.metrics.ObserveTurnIndicator("turn_flagged")
	}

	// Memory context; reads fail open inside the manager.
	gatherStart := time.Now()
	memCtx := p.memory.Snapshot(ctx, req.SessionID)
	p.observeStage("context_gather", gatherStart)

	// Retrieval: optional enhancement, degrades to no snippets.
	retrievalStart := time.Now()
	snippets := p.retriever.Query(ctx, req.Question, p.opts.TopK, p.opts.SnippetBudget, memCtx.RecentTopics)
	p.observeStage("retrieval", retrievalStart)
	if len(snippets) > 0 {
		p.metrics.RetrievalEvents.WithLabelValues("hit").Inc()
	} else {
		p.metrics.RetrievalEvents.WithLabelValues("empty").Inc()
	}
	result.State = StateContextGathered

	buildStart := time.Now()
	input := prompt.BuildInput{
		Emotion:    emotion,
		Confidence: req.Confidence,
		Age:        req.Age,
		Question:   req.Question,
		Memory:     memCtx,
		Snippets:   snippets,
	}
	promptCtx := p.assembler.Build(input)
	p.observeStage("prompt_build", buildStart)
	result.State = StatePromptBuilt

	text, err := p.invokeModel(ctx, promptCtx, input)
	result.State = StateModelInvoked
	if err != nil {
		result.State = StateFailed
		result.Response = safety.TryAgainResponse()
		if !errors.Is(err, context.Canceled) {
			log.Printf("pipeline: turn %s model call failed: %v", result.TurnID, err)
			p.metrics.ProviderErrors.WithLabelValues("model", "completion_failed").Inc()
		}
		p.finishTurn(ctx, req, emotion, &result, start)
		return result
	}

	// Over-long responses are cut to the policy bound and flagged, in
	// that order, so the output check sees what the child will.
	if trimmed, cut := p.classifier.TruncateResponse(text); cut {
		text = trimmed
		result.Flagged = true
		p.metrics.ObserveTurnIndicator("output_truncated")
	}

	// Output check: unsafe generated text never surfaces.
	outStart := time.Now()
	result.OutputVerdict = p.classifier.Classify(text, req.Age, safety.DirectionOutput)
	p.observeStage("output_check", outStart)
	p.countSafety(safety.DirectionOutput, result.OutputVerdict)
	result.State = StateOutputChecked

	if result.OutputVerdict.Action == safety.ActionBlock || result.OutputVerdict.Action == safety.ActionRedirect {
		result.State = StateBlocked
		result.Response = safety.SafeFallback()
		p.metrics.ObserveTurnIndicator("output_replaced")
		p.finishTurn(ctx, req, emotion, &result, start)
		return result
	}
	if result.OutputVerdict.Action == safety.ActionFlag {
		result.Flagged = true
		p.metrics.ObserveTurnIndicator("turn_flagged")
	}

	result.State = StateDelivered
	result.Response = text
	p.finishTurn(ctx, req, emotion, &result, start)
	return result
}

// invokeModel calls the backend with a bounded timeout and retries once
// with the snippets dropped, trading context for a smaller, faster prompt.
func (p *Pipeline) invokeModel(ctx context.Context, promptCtx prompt.Context, input prompt.BuildInput) (string, error) {
	params := brain.Params{
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	}

	callStart := time.Now()
	text, err := p.completeWithTimeout(ctx, promptCtx.Prompt, params)
	p.observeStage("model_call", callStart)
	p.metrics.ObserveModelLatency(time.Since(callStart))
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		// Client is gone; a retry cannot succeed.
		return "", err
	}

	input.Snippets = nil
	reduced := p.assembler.Build(input)
	p.metrics.ObserveTurnIndicator("model_retry_reduced_budget")

	retryStart := time.Now()
	text, retryErr := p.completeWithTimeout(ctx, reduced.Prompt, params)
	p.observeStage("model_call", retryStart)
	if retryErr != nil {
		return "", errors.Join(err, retryErr)
	}
	return text, nil
}

func (p *Pipeline) completeWithTimeout(ctx context.Context, text string, params brain.Params) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.ModelTimeout)
	defer cancel()
	return p.adapter.Complete(callCtx, text, params)
}

// finishTurn records the interaction and turn metrics for every terminal
// state. Recording runs on a detached context so a client disconnect cannot
// leave a hole in the audit trail.
func (p *Pipeline) finishTurn(ctx context.Context, req TurnRequest, emotion prompt.Emotion, result *TurnResult, start time.Time) {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := p.memory.RecordInteraction(recordCtx, req.SessionID, memory.InteractionRecord{
		Timestamp: time.Now().UTC(),
		Emotion:   string(emotion),
		Question:  req.Question,
		Response:  result.Response,
	})
	if err != nil {
		log.Printf("pipeline: turn %s audit record not persisted: %v", result.TurnID, err)
		p.metrics.ProviderErrors.WithLabelValues("memory_store", "save_failed").Inc()
	}

	p.metrics.TurnOutcomes.WithLabelValues(string(result.State)).Inc()
	p.observeStage("turn_total", start)
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.ObserveTurnStage(stage, time.Since(start))
}

func (p *Pipeline) countSafety(direction safety.Direction, v safety.Verdict) {
	category := v.MatchedCategory
	if category == "" {
		category = "none"
	}
	p.metrics.SafetyEvents.WithLabelValues(string(direction), string(v.Action), category).Inc()
}
