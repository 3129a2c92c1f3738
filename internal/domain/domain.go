package domain

import "time"

type Label string

const (
	LabelGood Label = "good"
	LabelBad  Label = "bad"
)

func (l Label) IsValid() bool {
	return l == LabelGood || l == LabelBad
}

type Metric string

const (
	MetricAccuracy Metric = "accuracy"
	MetricProfit   Metric = "profit"
)

func (m Metric) IsValid() bool {
	return m == MetricAccuracy || m == MetricProfit
}

const ModelKeyLogRegGood = "logreg_good"

// LoanApplication is one historical credit record. Outcome and Profit are nil
// until the loan has been resolved; the score fields are nil until a model has
// scored the row.
type LoanApplication struct {
	ID              int64
	CheckingStatus  string
	DurationMonths  int
	CreditHistory   string
	Purpose         string
	AmountDM        float64
	SavingsStatus   string
	EmploymentYears string
	InstallmentRate int
	AgeYears        int
	Housing         string
	ExistingCredits int
	Job             string
	Dependents      int
	ForeignWorker   bool
	Outcome         *Label
	ProfitDM        *float64
	ProbGood        *float64
	ModelKey        string
	ModelVersion    int
	ScoredAt        *time.Time
	Holdout         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ConfusionMatrix holds exact tallies for one decision threshold. Cell naming
// is true label first, predicted label second.
type ConfusionMatrix struct {
	BadBad   int `json:"bad_bad"`
	BadGood  int `json:"bad_good"`
	GoodBad  int `json:"good_bad"`
	GoodGood int `json:"good_good"`
}

func (m ConfusionMatrix) Total() int {
	return m.BadBad + m.BadGood + m.GoodBad + m.GoodGood
}

type EvaluationResult struct {
	Threshold  float64         `json:"threshold"`
	Matrix     ConfusionMatrix `json:"matrix"`
	Accuracy   float64         `json:"accuracy"`
	GoodRecall float64         `json:"good_recall"`
	BadRecall  float64         `json:"bad_recall"`
	Profit     float64         `json:"profit"`
	Approved   int             `json:"approved"`
}

// ThresholdReport is the output of one full sweep over the holdout set.
type ThresholdReport struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	ModelKey       string             `json:"model_key"`
	ModelVersion   int                `json:"model_version"`
	SampleCount    int                `json:"sample_count"`
	Results        []EvaluationResult `json:"results"`
	BestByAccuracy float64            `json:"best_by_accuracy"`
	BestByProfit   float64            `json:"best_by_profit"`
}

// LoanScore is one model's probability-of-good for one application.
type LoanScore struct {
	LoanID       int64
	ProbGood     float64
	ModelKey     string
	ModelVersion int
	ScoredAt     time.Time
}

type EvaluationRun struct {
	ID        int64
	Report    ThresholdReport
	CreatedAt time.Time
}

type ModelVersion struct {
	ID                 int64
	ModelKey           string
	Version            int
	FeatureSpecVersion string
	TrainedFrom        time.Time
	TrainedTo          time.Time
	TrainedAt          time.Time
	HyperparamsJSON    string
	MetricsJSON        string
	ArtifactFormat     string
	ArtifactBlob       []byte
	IsActive           bool
	ActivatedAt        *time.Time
	CreatedAt          time.Time
}
