package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loanwatch/internal/domain"
	"loanwatch/internal/ml/training"
)

type trainerStub struct {
	result training.ModelTrainResult
	err    error
}

func (s trainerStub) Train(ctx context.Context, now time.Time) (training.ModelTrainResult, error) {
	return s.result, s.err
}

type scorerStub struct {
	count int
	err   error
}

func (s scorerStub) ScorePending(ctx context.Context, now time.Time) (int, error) {
	return s.count, s.err
}

func TestTriggerTrainingSuccess(t *testing.T) {
	result := training.ModelTrainResult{
		ModelKey:     domain.ModelKeyLogRegGood,
		Version:      3,
		SampleCount:  400,
		HoldoutCount: 120,
		AUC:          0.81,
		Accuracy:     0.74,
		Promoted:     true,
	}
	h := New(testTracer, reportProviderStub{}, trainerStub{result: result}, nil, nil, "")
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if payload["model_key"] != domain.ModelKeyLogRegGood {
		t.Fatalf("unexpected model_key %v", payload["model_key"])
	}
	if payload["promoted"] != true {
		t.Fatalf("expected promoted=true, got %v", payload["promoted"])
	}
	if _, ok := payload["promote_error"]; ok {
		t.Fatalf("did not expect promote_error in payload")
	}
}

func TestTriggerTrainingPromoteError(t *testing.T) {
	result := training.ModelTrainResult{Version: 4, PromoteError: errors.New("activate failed")}
	h := New(testTracer, reportProviderStub{}, trainerStub{result: result}, nil, nil, "")
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if payload["promote_error"] != "activate failed" {
		t.Fatalf("expected promote_error, got %v", payload["promote_error"])
	}
}

func TestTriggerTrainingUnavailable(t *testing.T) {
	h := New(testTracer, reportProviderStub{}, nil, nil, nil, "")
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestTriggerTrainingError(t *testing.T) {
	h := New(testTracer, reportProviderStub{}, trainerStub{err: errors.New("not enough samples")}, nil, nil, "")
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/train", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestTriggerScoring(t *testing.T) {
	h := New(testTracer, reportProviderStub{}, nil, scorerStub{count: 42}, nil, "")
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/score", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if payload["scored"] != float64(42) {
		t.Fatalf("expected scored=42, got %v", payload["scored"])
	}
}

func TestTriggerScoringUnavailable(t *testing.T) {
	h := New(testTracer, reportProviderStub{}, nil, nil, nil, "")
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/score", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
