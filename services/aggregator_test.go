package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsflow/models"
	"newsflow/storage"
)

type aggFixture struct {
	archive      *storage.DayArchive
	aggregator   *Aggregator
	archiveDir   string
	retentionDir string
	reportDir    string
}

func newAggFixture(t *testing.T) *aggFixture {
	t.Helper()
	base := t.TempDir()
	f := &aggFixture{
		archiveDir:   filepath.Join(base, "live"),
		retentionDir: filepath.Join(base, "retention"),
		reportDir:    filepath.Join(base, "reports"),
	}
	archive, err := storage.NewDayArchive(f.archiveDir)
	require.NoError(t, err)
	f.archive = archive
	f.aggregator = NewAggregator(archive, f.retentionDir, f.reportDir, zap.NewNop())
	return f
}

func archiveRecord(writeDate time.Time, keywords ...string) models.ArchiveRecord {
	return models.ArchiveRecord{
		Title:     "t",
		WriteDate: writeDate,
		Category:  "economy",
		URL:       "https://example.com/" + writeDate.Format(time.RFC3339Nano),
		Keywords:  keywords,
	}
}

func TestRunDailyRanksKeywordsAndRotates(t *testing.T) {
	f := newAggFixture(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	inWindow := day.Add(10 * time.Hour)
	_, err := f.archive.Append("2025-06-01", archiveRecord(inWindow, "rates", "bank"))
	require.NoError(t, err)
	_, err = f.archive.Append("2025-06-01", archiveRecord(inWindow, "rates", "bank"))
	require.NoError(t, err)
	_, err = f.archive.Append("2025-06-01", archiveRecord(inWindow, "policy"))
	require.NoError(t, err)

	report, err := f.aggregator.RunDaily(day)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRecords)
	assert.Equal(t, 3, report.WindowRecords)
	require.Len(t, report.TopKeywords, 3)
	// Equal counts order lexically: bank before rates.
	assert.Equal(t, KeywordCount{Keyword: "bank", Count: 2}, report.TopKeywords[0])
	assert.Equal(t, KeywordCount{Keyword: "rates", Count: 2}, report.TopKeywords[1])
	assert.Equal(t, KeywordCount{Keyword: "policy", Count: 1}, report.TopKeywords[2])

	require.NotEmpty(t, report.ArtifactPath)
	info, err := os.Stat(report.ArtifactPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Equal(t, 1, report.FilesRotated)
	remaining, err := f.archive.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, remaining)
	_, err = os.Stat(filepath.Join(f.retentionDir, "2025-06-01.jsonl"))
	assert.NoError(t, err)
}

func TestRunDailyWindowIsHalfOpen(t *testing.T) {
	f := newAggFixture(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []time.Time{
		day,                                  // at start, included
		day.Add(24*time.Hour - time.Second),  // just before end, included
		day.Add(24 * time.Hour),              // at end, excluded
		day.Add(-time.Second),                // before start, excluded
	}
	for _, wd := range cases {
		_, err := f.archive.Append("2025-06-01", archiveRecord(wd, "rates"))
		require.NoError(t, err)
	}

	report, err := f.aggregator.RunDaily(day)
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 2, report.WindowRecords)
	require.Len(t, report.TopKeywords, 1)
	assert.Equal(t, 2, report.TopKeywords[0].Count)
}

func TestRunDailyNoKeywordDataStillRotates(t *testing.T) {
	f := newAggFixture(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Only out-of-window data: no artifact, but the file is still retired.
	_, err := f.archive.Append("2025-05-31", archiveRecord(day.Add(-2*time.Hour), "stale"))
	require.NoError(t, err)

	report, err := f.aggregator.RunDaily(day)
	require.NoError(t, err)

	assert.Empty(t, report.TopKeywords)
	assert.Empty(t, report.ArtifactPath)
	assert.Equal(t, 1, report.FilesRotated)
}

func TestRunDailyEmptyArchiveIsNoOp(t *testing.T) {
	f := newAggFixture(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	report, err := f.aggregator.RunDaily(day)
	require.NoError(t, err)

	assert.Zero(t, report.TotalRecords)
	assert.Zero(t, report.FilesRotated)
	assert.Empty(t, report.ArtifactPath)

	// A second run over the emptied directory behaves identically.
	report, err = f.aggregator.RunDaily(day)
	require.NoError(t, err)
	assert.Zero(t, report.FilesRotated)
}

func TestRunDailyCapsTopKeywords(t *testing.T) {
	f := newAggFixture(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	keywords := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for i, kw := range keywords {
		// Distinct counts so the cut is unambiguous.
		for n := 0; n <= i; n++ {
			_, err := f.archive.Append("2025-06-01", archiveRecord(day.Add(time.Hour), kw))
			require.NoError(t, err)
		}
	}

	report, err := f.aggregator.RunDaily(day)
	require.NoError(t, err)

	require.Len(t, report.TopKeywords, 10)
	assert.Equal(t, "l", report.TopKeywords[0].Keyword)
	assert.Equal(t, "c", report.TopKeywords[9].Keyword)
}
