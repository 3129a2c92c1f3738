// Package eval is the threshold evaluator for a scored loan book: given
// predicted probabilities of repayment, true outcomes and realized per-loan
// profit, it computes confusion matrices, accuracy and portfolio profit for
// candidate decision thresholds and picks a recommended cutoff.
//
// Profit model: a loan whose probability falls below the threshold is treated
// as declined, contributing exactly zero, even though the historical row
// carries a real outcome. This mirrors the business decision being modeled
// (no approval, no capital deployed) and is a deliberate simplification
// carried over from the underlying analysis.
package eval

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"loanwatch/internal/domain"
)

// ErrInvalidInput is returned for length mismatches, out-of-range values and
// empty inputs where a result is required. Inputs are never coerced: an
// out-of-range threshold fails instead of being clamped.
var ErrInvalidInput = errors.New("invalid input")

// Classify cuts probabilities at threshold. A probability equal to the
// threshold classifies as good: the partition is [threshold, 1] approved,
// [0, threshold) declined.
func Classify(probs []float64, threshold float64) ([]domain.Label, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidInput, threshold)
	}
	out := make([]domain.Label, len(probs))
	for i, p := range probs {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: probability %v at index %d outside [0,1]", ErrInvalidInput, p, i)
		}
		if p >= threshold {
			out[i] = domain.LabelGood
		} else {
			out[i] = domain.LabelBad
		}
	}
	return out, nil
}

// Matrix tallies true vs predicted labels into the four cells. Counts are
// exact; the cells always sum to len(trueLabels).
func Matrix(trueLabels, predicted []domain.Label) (domain.ConfusionMatrix, error) {
	var m domain.ConfusionMatrix
	if len(trueLabels) != len(predicted) {
		return m, fmt.Errorf("%w: %d true labels vs %d predicted", ErrInvalidInput, len(trueLabels), len(predicted))
	}
	for i := range trueLabels {
		if !trueLabels[i].IsValid() {
			return domain.ConfusionMatrix{}, fmt.Errorf("%w: unknown true label %q at index %d", ErrInvalidInput, trueLabels[i], i)
		}
		if !predicted[i].IsValid() {
			return domain.ConfusionMatrix{}, fmt.Errorf("%w: unknown predicted label %q at index %d", ErrInvalidInput, predicted[i], i)
		}
		switch {
		case trueLabels[i] == domain.LabelBad && predicted[i] == domain.LabelBad:
			m.BadBad++
		case trueLabels[i] == domain.LabelBad && predicted[i] == domain.LabelGood:
			m.BadGood++
		case trueLabels[i] == domain.LabelGood && predicted[i] == domain.LabelBad:
			m.GoodBad++
		default:
			m.GoodGood++
		}
	}
	return m, nil
}

// Accuracy is the correct-prediction share, diagonal over total.
func Accuracy(m domain.ConfusionMatrix) (float64, error) {
	total := m.Total()
	if total == 0 {
		return 0, fmt.Errorf("%w: empty confusion matrix", ErrInvalidInput)
	}
	return float64(m.BadBad+m.GoodGood) / float64(total), nil
}

// Recalls returns per-class recall. A class with no observations recalls 0,
// matching how training metrics guard their ratios.
func Recalls(m domain.ConfusionMatrix) (goodRecall, badRecall float64) {
	if m.GoodGood+m.GoodBad > 0 {
		goodRecall = float64(m.GoodGood) / float64(m.GoodGood+m.GoodBad)
	}
	if m.BadBad+m.BadGood > 0 {
		badRecall = float64(m.BadBad) / float64(m.BadBad+m.BadGood)
	}
	return goodRecall, badRecall
}

// Profit sums realized outcomes over approved (predicted-good) loans.
// Declined loans contribute zero; see the package comment.
func Profit(outcomes []float64, predicted []domain.Label) (float64, error) {
	if len(outcomes) != len(predicted) {
		return 0, fmt.Errorf("%w: %d outcomes vs %d predicted labels", ErrInvalidInput, len(outcomes), len(predicted))
	}
	total := 0.0
	for i := range outcomes {
		if predicted[i] == domain.LabelGood {
			total += outcomes[i]
		}
	}
	return total, nil
}

// Sweep evaluates every threshold in order against the same fixed inputs and
// returns one result per threshold, input order preserved, no sorting or
// dedup. Each threshold is independent of the others, so they are fanned out
// across workers that each write a distinct slot; output order comes from
// slot index, not completion order.
func Sweep(ctx context.Context, probs []float64, trueLabels []domain.Label, outcomes []float64, thresholds []float64) ([]domain.EvaluationResult, error) {
	if len(probs) == 0 {
		return nil, fmt.Errorf("%w: no observations", ErrInvalidInput)
	}
	if len(trueLabels) != len(probs) {
		return nil, fmt.Errorf("%w: %d probabilities vs %d true labels", ErrInvalidInput, len(probs), len(trueLabels))
	}
	if outcomes != nil && len(outcomes) != len(probs) {
		return nil, fmt.Errorf("%w: %d probabilities vs %d outcomes", ErrInvalidInput, len(probs), len(outcomes))
	}
	for i, p := range probs {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: probability %v at index %d outside [0,1]", ErrInvalidInput, p, i)
		}
	}
	for i := range trueLabels {
		if !trueLabels[i].IsValid() {
			return nil, fmt.Errorf("%w: unknown true label %q at index %d", ErrInvalidInput, trueLabels[i], i)
		}
	}
	for _, t := range thresholds {
		if t < 0 || t > 1 {
			return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidInput, t)
		}
	}

	results := make([]domain.EvaluationResult, len(thresholds))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(thresholds) {
		workers = len(thresholds)
	}
	if workers < 1 {
		workers = 1
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = evaluateOne(probs, trueLabels, outcomes, thresholds[i])
			}
		}()
	}

feed:
	for i := range thresholds {
		select {
		case <-ctx.Done():
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateOne runs on inputs Sweep has already validated, so the per-step
// errors cannot fire.
func evaluateOne(probs []float64, trueLabels []domain.Label, outcomes []float64, threshold float64) domain.EvaluationResult {
	predicted, _ := Classify(probs, threshold)
	m, _ := Matrix(trueLabels, predicted)
	acc, _ := Accuracy(m)
	goodRecall, badRecall := Recalls(m)

	res := domain.EvaluationResult{
		Threshold:  threshold,
		Matrix:     m,
		Accuracy:   acc,
		GoodRecall: goodRecall,
		BadRecall:  badRecall,
		Approved:   m.BadGood + m.GoodGood,
	}
	if outcomes != nil {
		res.Profit, _ = Profit(outcomes, predicted)
	}
	return res
}

// BestThreshold is a stable argmax over sweep results: on ties the earliest
// result wins.
func BestThreshold(results []domain.EvaluationResult, metric domain.Metric) (float64, error) {
	if len(results) == 0 {
		return 0, fmt.Errorf("%w: no results", ErrInvalidInput)
	}
	if !metric.IsValid() {
		return 0, fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, metric)
	}
	value := func(r domain.EvaluationResult) float64 {
		if metric == domain.MetricProfit {
			return r.Profit
		}
		return r.Accuracy
	}
	best := 0
	for i := 1; i < len(results); i++ {
		if value(results[i]) > value(results[best]) {
			best = i
		}
	}
	return results[best].Threshold, nil
}
