package features

import (
	"sort"

	"loanwatch/internal/domain"
)

const featureSpecVersion = "v1"

func FeatureSpecVersion() string {
	return featureSpecVersion
}

// Dataset is the aligned output the trainer and evaluator consume: element i
// of every slice describes the same loan.
type Dataset struct {
	LoanIDs []int64
	Samples [][]float64
	Labels  []float64
	Outcome []domain.Label
	Profits []float64
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// BuildDataset encodes resolved applications in ascending ID order. Rows
// without an outcome are skipped; a missing profit counts as zero (the loan
// resolved but its cash flow was never recorded).
func (e *Engine) BuildDataset(apps []domain.LoanApplication) Dataset {
	sorted := make([]domain.LoanApplication, len(apps))
	copy(sorted, apps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	ds := Dataset{}
	for i := range sorted {
		label, ok := TargetLabel(sorted[i])
		if !ok {
			continue
		}
		profit := 0.0
		if sorted[i].ProfitDM != nil {
			profit = *sorted[i].ProfitDM
		}
		ds.LoanIDs = append(ds.LoanIDs, sorted[i].ID)
		ds.Samples = append(ds.Samples, FeatureVector(sorted[i]))
		ds.Labels = append(ds.Labels, label)
		ds.Outcome = append(ds.Outcome, *sorted[i].Outcome)
		ds.Profits = append(ds.Profits, profit)
	}
	return ds
}

func (d Dataset) Len() int {
	return len(d.Samples)
}
