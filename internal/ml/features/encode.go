package features

import (
	"math"

	"loanwatch/internal/domain"
)

// FeatureNames is the fixed feature order for every artifact trained under
// the current spec version.
var FeatureNames = []string{
	"log_amount",
	"log_duration",
	"checking_status",
	"credit_history",
	"savings_status",
	"employment_years",
	"installment_rate",
	"age_years",
	"housing",
	"existing_credits",
	"job",
	"dependents",
	"foreign_worker",
}

// Ordinal collapses of the raw categorical codes. Unknown codes map to the
// neutral middle of each scale rather than failing, since upstream data entry
// is not under our control.
var (
	checkingScale = map[string]float64{
		"no_account": 0,
		"negative":   1,
		"low":        2,
		"high":       3,
	}
	creditHistoryScale = map[string]float64{
		"critical":      0,
		"delayed":       1,
		"existing_paid": 2,
		"all_paid":      3,
		"no_credits":    4,
	}
	savingsScale = map[string]float64{
		"unknown": 0,
		"lt_100":  1,
		"lt_500":  2,
		"lt_1000": 3,
		"ge_1000": 4,
	}
	employmentScale = map[string]float64{
		"unemployed": 0,
		"lt_1":       1,
		"lt_4":       2,
		"lt_7":       3,
		"ge_7":       4,
	}
	housingScale = map[string]float64{
		"free": 0,
		"rent": 1,
		"own":  2,
	}
	jobScale = map[string]float64{
		"unemployed_nonresident": 0,
		"unskilled_resident":     1,
		"skilled":                2,
		"management":             3,
	}
)

// FeatureVector encodes one application in FeatureNames order. Amount and
// duration are log-transformed to tame their right skew.
func FeatureVector(app domain.LoanApplication) []float64 {
	foreign := 0.0
	if app.ForeignWorker {
		foreign = 1
	}
	return []float64{
		logPositive(app.AmountDM),
		logPositive(float64(app.DurationMonths)),
		ordinal(checkingScale, app.CheckingStatus),
		ordinal(creditHistoryScale, app.CreditHistory),
		ordinal(savingsScale, app.SavingsStatus),
		ordinal(employmentScale, app.EmploymentYears),
		float64(app.InstallmentRate),
		float64(app.AgeYears),
		ordinal(housingScale, app.Housing),
		float64(app.ExistingCredits),
		ordinal(jobScale, app.Job),
		float64(app.Dependents),
		foreign,
	}
}

// TargetLabel is 1 for a good outcome, 0 for bad; ok is false while the loan
// is unresolved.
func TargetLabel(app domain.LoanApplication) (float64, bool) {
	if app.Outcome == nil {
		return 0, false
	}
	if *app.Outcome == domain.LabelGood {
		return 1, true
	}
	return 0, true
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func logPositive(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log(v)
}

func ordinal(scale map[string]float64, code string) float64 {
	if v, ok := scale[code]; ok {
		return v
	}
	mid := 0.0
	for _, v := range scale {
		mid += v
	}
	return mid / float64(len(scale))
}
