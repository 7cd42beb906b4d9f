package specgen

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"voicespec/pkg/logger"
	"voicespec/pkg/resilience"

	"go.uber.org/zap"
)

// Completer is the generative-text backend.
type Completer interface {
	Complete(ctx context.Context, modelID, prompt string, maxTokens int32, temperature float32) (string, error)
}

// Spec is the generated requirements document plus its project name.
// Immutable once produced.
type Spec struct {
	ProjectName string
	Content     string
}

// projectNamePattern is the kebab-case identifier grammar: no uppercase, no
// whitespace, no underscore.
var projectNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Generator turns a transcript into a Spec via a completion call with a
// fixed prompt contract, retrying transient provider faults with
// exponential backoff.
type Generator struct {
	completer   Completer
	modelID     string
	maxTokens   int32
	temperature float32
	retry       *resilience.RetryConfig
}

// Options tunes the completion call. Zero values get the production
// defaults: 4000 output tokens and a near-deterministic temperature of 0.1.
type Options struct {
	MaxTokens   int32
	Temperature float32
}

func NewGenerator(completer Completer, modelID string, opts Options) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.1
	}

	retry := resilience.DefaultRetryConfig()
	retry.Retryable = Retryable

	return &Generator{
		completer:   completer,
		modelID:     modelID,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		retry:       retry,
	}
}

// Generate produces a validated Spec from a transcript. Transient provider
// errors and responses without a locatable JSON object are retried up to 3
// times with exponential backoff (base 1s, cap 30s); contract violations
// surface immediately.
func (g *Generator) Generate(ctx context.Context, transcript string) (Spec, error) {
	if strings.TrimSpace(transcript) == "" {
		return Spec{}, &Error{Kind: KindInvalidArgument, Op: "generate", Message: "transcript cannot be empty"}
	}

	prompt := buildPrompt(transcript)

	var spec Spec
	attempt := 0
	err := resilience.RetryWithExponentialBackoff(ctx, g.retry, func() error {
		attempt++
		logger.Debug("Requesting specification from model",
			zap.String("model_id", g.modelID),
			zap.Int("attempt", attempt))

		raw, err := g.completer.Complete(ctx, g.modelID, prompt, g.maxTokens, g.temperature)
		if err != nil {
			return err
		}

		parsed, err := parseResponse(raw)
		if err != nil {
			return err
		}
		spec = parsed
		return nil
	})
	if err != nil {
		return Spec{}, err
	}

	logger.Info("Specification generated",
		zap.String("project_name", spec.ProjectName),
		zap.Int("content_length", len(spec.Content)),
		zap.Int("attempts", attempt))

	return spec, nil
}

// parseResponse extracts the JSON object between the first '{' and last '}'
// (tolerating surrounding prose) and validates the two-field contract.
func parseResponse(raw string) (Spec, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return Spec{}, &Error{Kind: KindMalformedResponse, Op: "parse", Message: "response has no JSON object", Err: ErrNoJSONObject}
	}

	var payload struct {
		ProjectName          *string `json:"project_name"`
		SpecificationContent *string `json:"specification_content"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Spec{}, &Error{Kind: KindMalformedResponse, Op: "parse", Message: "failed to parse JSON response", Err: err}
	}

	if payload.ProjectName == nil {
		return Spec{}, &Error{Kind: KindMalformedResponse, Op: "parse", Message: `missing "project_name" in response`}
	}
	if payload.SpecificationContent == nil {
		return Spec{}, &Error{Kind: KindMalformedResponse, Op: "parse", Message: `missing "specification_content" in response`}
	}

	name := strings.TrimSpace(*payload.ProjectName)
	content := strings.TrimSpace(*payload.SpecificationContent)

	if !projectNamePattern.MatchString(name) {
		return Spec{}, &Error{Kind: KindMalformedResponse, Op: "parse", Message: "project name must be kebab-case: " + name}
	}
	if content == "" {
		return Spec{}, &Error{Kind: KindMalformedResponse, Op: "parse", Message: "specification content cannot be empty"}
	}

	return Spec{ProjectName: name, Content: content}, nil
}
