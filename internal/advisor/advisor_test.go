package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"loanwatch/internal/domain"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace"
)

func sampleReport() domain.ThresholdReport {
	return domain.ThresholdReport{
		GeneratedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ModelKey:     domain.ModelKeyLogRegGood,
		ModelVersion: 2,
		SampleCount:  4,
		Results: []domain.EvaluationResult{
			{
				Threshold:  0.5,
				Matrix:     domain.ConfusionMatrix{BadBad: 1, BadGood: 1, GoodGood: 2},
				Accuracy:   0.75,
				GoodRecall: 1,
				BadRecall:  0.5,
				Profit:     1400,
				Approved:   3,
			},
		},
		BestByAccuracy: 0.5,
		BestByProfit:   0.7,
	}
}

func TestSummarizeHappyPath(t *testing.T) {
	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "keep the cut at 0.7"}},
			},
		},
	}
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), llm, "gpt-4o-mini")

	reply, err := svc.Summarize(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "keep the cut at 0.7" {
		t.Fatalf("expected 'keep the cut at 0.7', got %q", reply)
	}
	if len(llm.params.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(llm.params.Messages))
	}
	if llm.params.Model != "gpt-4o-mini" {
		t.Fatalf("expected configured model, got %q", llm.params.Model)
	}
}

func TestSummarizeLLMError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), llm, "gpt-4o-mini")

	_, err := svc.Summarize(context.Background(), sampleReport())
	if err == nil {
		t.Fatal("expected error from LLM failure")
	}
	if !strings.Contains(err.Error(), "advisor unavailable") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSummarizeNoChoices(t *testing.T) {
	llm := &stubLLMClient{response: &openai.ChatCompletion{}}
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), llm, "gpt-4o-mini")

	_, err := svc.Summarize(context.Background(), sampleReport())
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestSummarizeDefaultModel(t *testing.T) {
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), &stubLLMClient{}, "")
	if svc.model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", svc.model)
	}
}

// --- stubs ---

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error
	params   openai.ChatCompletionNewParams
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.params = params
	return s.response, s.err
}
