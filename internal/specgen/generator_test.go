package specgen

import (
	"context"
	"errors"
	"testing"
	"time"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubCompleter) Complete(ctx context.Context, modelID, prompt string, maxTokens int32, temperature float32) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", classify("complete", s.errs[i])
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return s.responses[len(s.responses)-1], nil
}

func newTestGenerator(completer Completer, delays *[]time.Duration) *Generator {
	g := NewGenerator(completer, "test-model", Options{})
	g.retry.Sleep = func(d time.Duration) {
		if delays != nil {
			*delays = append(*delays, d)
		}
	}
	return g
}

func TestGenerateExtractsJSONFromNoisyResponse(t *testing.T) {
	completer := &stubCompleter{responses: []string{
		"Sure, here is the result:\n" +
			`{"project_name": "todo-app", "specification_content": "# Requirements Specification\n\n- REQ-001"}` +
			"\nLet me know if you need changes.",
	}}
	g := newTestGenerator(completer, nil)

	spec, err := g.Generate(context.Background(), "I need a todo app")
	require.NoError(t, err)
	assert.Equal(t, "todo-app", spec.ProjectName)
	assert.Equal(t, "# Requirements Specification\n\n- REQ-001", spec.Content)
	assert.Equal(t, 1, completer.calls)
}

func TestGenerateRejectsNonKebabProjectName(t *testing.T) {
	completer := &stubCompleter{responses: []string{
		`{"project_name": "Todo_App", "specification_content": "# Spec"}`,
	}}
	g := newTestGenerator(completer, nil)

	_, err := g.Generate(context.Background(), "transcript")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedResponse))
	assert.Equal(t, 1, completer.calls, "contract violations must not be retried")
}

func TestGenerateRetriesRateLimits(t *testing.T) {
	throttle := &brtypes.ThrottlingException{Message: strPtr("slow down")}
	completer := &stubCompleter{
		errs: []error{throttle, throttle, throttle, nil},
		responses: []string{"", "", "",
			`{"project_name": "chat-service", "specification_content": "# Spec"}`,
		},
	}
	var delays []time.Duration
	g := newTestGenerator(completer, &delays)

	spec, err := g.Generate(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Equal(t, "chat-service", spec.ProjectName)
	assert.Equal(t, 4, completer.calls)

	require.Len(t, delays, 3)
	for i, d := range delays {
		assert.LessOrEqual(t, d, 30*time.Second)
		if i > 0 {
			assert.GreaterOrEqual(t, d, delays[i-1])
		}
	}
}

func TestGenerateRetriesResponseWithoutJSON(t *testing.T) {
	completer := &stubCompleter{responses: []string{
		"I'm sorry, I can't produce a specification for that.",
		`{"project_name": "todo-app", "specification_content": "# Spec"}`,
	}}
	var delays []time.Duration
	g := newTestGenerator(completer, &delays)

	spec, err := g.Generate(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Equal(t, "todo-app", spec.ProjectName)
	assert.Equal(t, 2, completer.calls)
	assert.Len(t, delays, 1)
}

func TestGenerateEmptyTranscript(t *testing.T) {
	completer := &stubCompleter{}
	g := newTestGenerator(completer, nil)

	_, err := g.Generate(context.Background(), "   \n ")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidArgument))
	assert.Equal(t, 0, completer.calls)
}

func TestGenerateMissingFieldNotRetried(t *testing.T) {
	completer := &stubCompleter{responses: []string{
		`{"project_name": "todo-app"}`,
	}}
	g := newTestGenerator(completer, nil)

	_, err := g.Generate(context.Background(), "transcript")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedResponse))
	assert.False(t, errors.Is(err, ErrNoJSONObject))
	assert.Equal(t, 1, completer.calls)
}

func TestGenerateAccessDeniedNotRetried(t *testing.T) {
	completer := &stubCompleter{errs: []error{
		&brtypes.AccessDeniedException{Message: strPtr("no model access")},
	}}
	g := newTestGenerator(completer, nil)

	_, err := g.Generate(context.Background(), "transcript")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAccessDenied))
	assert.Equal(t, 1, completer.calls)
}

func strPtr(s string) *string { return &s }
