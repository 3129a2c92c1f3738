package domain

import "testing"

func TestLabelIsValid(t *testing.T) {
	if !LabelGood.IsValid() || !LabelBad.IsValid() {
		t.Fatal("expected good and bad to be valid labels")
	}
	if Label("excellent").IsValid() {
		t.Fatal("unknown label should be invalid")
	}
}

func TestMetricIsValid(t *testing.T) {
	if !MetricAccuracy.IsValid() || !MetricProfit.IsValid() {
		t.Fatal("expected accuracy and profit to be valid metrics")
	}
	if Metric("f1").IsValid() {
		t.Fatal("unknown metric should be invalid")
	}
}

func TestConfusionMatrixTotal(t *testing.T) {
	m := ConfusionMatrix{BadBad: 1, BadGood: 2, GoodBad: 3, GoodGood: 4}
	if m.Total() != 10 {
		t.Fatalf("expected total 10, got %d", m.Total())
	}
}
