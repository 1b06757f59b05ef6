package scanner

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/interfaces"
)

// ReportSummarizer counts issues per severity in the scanner's HTML issues report
type ReportSummarizer struct {
	selectors map[string]string // severity -> CSS selector
	logger    arbor.ILogger
}

var _ interfaces.ReportSummarizer = (*ReportSummarizer)(nil)

// NewReportSummarizer creates a summarizer using the given severity selectors
func NewReportSummarizer(selectors map[string]string, logger arbor.ILogger) *ReportSummarizer {
	return &ReportSummarizer{selectors: selectors, logger: logger}
}

// Summarize returns the number of elements matching each severity selector
func (r *ReportSummarizer) Summarize(reportPath string) (map[string]int, error) {
	f, err := os.Open(reportPath)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", reportPath, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create goquery document: %w", err)
	}

	counts := make(map[string]int, len(r.selectors))
	for severity, selector := range r.selectors {
		if n := doc.Find(selector).Length(); n > 0 {
			counts[severity] = n
		}
	}

	r.logger.Debug().Str("report", reportPath).Int("severities", len(counts)).Msg("Summarized issues report")
	return counts, nil
}
