package advisor

import (
	"fmt"
	"strings"
	"time"

	"loanwatch/internal/domain"
)

const creditPhilosophy = `You are a credit risk analyst assistant. Your role is to interpret threshold evaluation reports for a consumer loan book, NOT to invent numbers.

The report sweeps approval thresholds over a holdout set of resolved loans. At each threshold, applications whose predicted probability of repayment meets the cut are approved. The confusion matrix is true label first, predicted second: good_good are correctly approved repayers, bad_good are approved defaulters, good_bad are rejected repayers, bad_bad are correctly rejected defaulters.

Rules:
- Always reference specific thresholds and figures from the report.
- Never fabricate data. If a figure is missing, say so.
- The accuracy-optimal and profit-optimal thresholds can disagree; when they do, explain the trade-off in one or two sentences.
- A higher threshold approves fewer loans: lower default exposure, more rejected repayers.
- Profit figures are in Deutsche Mark over the holdout sample. Rejected loans contribute zero.
- Keep the summary concise. Three short paragraphs at most.`

func BuildSystemPrompt() string {
	return creditPhilosophy
}

func FormatReportContext(report domain.ThresholdReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Threshold report for model %s v%d, generated %s, %d holdout loans.\n",
		report.ModelKey, report.ModelVersion,
		report.GeneratedAt.UTC().Format(time.RFC822), report.SampleCount))
	sb.WriteString(fmt.Sprintf("Best threshold by accuracy: %.2f. Best threshold by profit: %.2f.\n",
		report.BestByAccuracy, report.BestByProfit))

	if len(report.Results) > 0 {
		sb.WriteString("\nSweep:\n")
		for _, r := range report.Results {
			sb.WriteString(fmt.Sprintf("  cut=%.2f approved=%d accuracy=%.3f good_recall=%.3f bad_recall=%.3f profit=%.0f DM (gg=%d bg=%d gb=%d bb=%d)\n",
				r.Threshold, r.Approved, r.Accuracy, r.GoodRecall, r.BadRecall, r.Profit,
				r.Matrix.GoodGood, r.Matrix.BadGood, r.Matrix.GoodBad, r.Matrix.BadBad))
		}
	}

	sb.WriteString("\nSummarize the recommendation for the credit team.")
	return sb.String()
}
