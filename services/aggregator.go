package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"newsflow/storage"
)

// KeywordCount is one ranked keyword in a daily report.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Report summarizes one daily aggregation run.
type Report struct {
	Date          time.Time      `json:"date"`
	TotalRecords  int            `json:"total_records"`
	WindowRecords int            `json:"window_records"`
	TopKeywords   []KeywordCount `json:"top_keywords"`
	// ArtifactPath is empty when the day had no keyword data; no report
	// artifact is produced in that case.
	ArtifactPath string `json:"artifact_path,omitempty"`
	FilesRotated int    `json:"files_rotated"`
}

// Aggregator consumes a day's worth of archived records, ranks keyword
// frequencies and rotates the processed files into retention.
type Aggregator struct {
	archive      *storage.DayArchive
	retentionDir string
	reportDir    string
	topK         int
	logger       *zap.Logger
}

// NewAggregator wires the aggregator over the live archive directory.
func NewAggregator(archive *storage.DayArchive, retentionDir, reportDir string, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		archive:      archive,
		retentionDir: retentionDir,
		reportDir:    reportDir,
		topK:         10,
		logger:       logger,
	}
}

// RunDaily aggregates the window [targetDate 00:00, +24h) and rotates every
// source file afterwards. Running it again on the emptied directory is a
// no-op, not an error.
func (a *Aggregator) RunDaily(targetDate time.Time) (Report, error) {
	start := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	end := start.Add(24 * time.Hour)
	report := Report{Date: start}

	log := a.logger.With(zap.String("report_date", start.Format("2006-01-02")))

	files, err := a.archive.ListFiles()
	if err != nil {
		return report, fmt.Errorf("list archive files: %w", err)
	}

	counts := map[string]int{}
	for _, file := range files {
		records, err := storage.ReadAll(file)
		if err != nil {
			return report, fmt.Errorf("load archive file %s: %w", file, err)
		}
		report.TotalRecords += len(records)
		for _, rec := range records {
			if rec.WriteDate.Before(start) || !rec.WriteDate.Before(end) {
				continue
			}
			report.WindowRecords++
			for _, kw := range rec.Keywords {
				if kw == "" {
					continue
				}
				counts[kw]++
			}
		}
	}
	log.Info("archive loaded", zap.Int("total_records", report.TotalRecords), zap.Int("window_records", report.WindowRecords))

	report.TopKeywords = rankKeywords(counts, a.topK)

	if len(report.TopKeywords) > 0 {
		path, err := a.renderChart(start, report.TopKeywords)
		if err != nil {
			return report, fmt.Errorf("render report: %w", err)
		}
		report.ArtifactPath = path
		log.Info("report artifact written", zap.String("path", path))
	} else {
		log.Warn("no keyword data for the day, report skipped")
	}

	moved, err := a.archive.RotateTo(a.retentionDir)
	if err != nil {
		return report, fmt.Errorf("rotate archive: %w", err)
	}
	report.FilesRotated = moved
	log.Info("archive rotation completed", zap.Int("files_moved", moved))

	return report, nil
}

// rankKeywords orders keywords by descending count; ties break on the
// keyword's lexical order so repeated runs produce the same report.
func rankKeywords(counts map[string]int, k int) []KeywordCount {
	ranked := make([]KeywordCount, 0, len(counts))
	for kw, n := range counts {
		ranked = append(ranked, KeywordCount{Keyword: kw, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Keyword < ranked[j].Keyword
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func (a *Aggregator) renderChart(day time.Time, top []KeywordCount) (string, error) {
	if err := os.MkdirAll(a.reportDir, 0o755); err != nil {
		return "", err
	}

	bars := make([]chart.Value, 0, len(top))
	for _, kc := range top {
		bars = append(bars, chart.Value{Label: kc.Keyword, Value: float64(kc.Count)})
	}
	graph := chart.BarChart{
		Title:    fmt.Sprintf("Top %d keywords %s", len(top), day.Format("2006-01-02")),
		Height:   512,
		BarWidth: 60,
		Bars:     bars,
	}

	path := filepath.Join(a.reportDir, fmt.Sprintf("daily_report_%s.png", day.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return "", err
	}
	return path, nil
}
