package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"newsflow/services"
	"newsflow/storage"
)

// ReportConfig is the standalone aggregation runner's configuration. It
// reads the same archive directories as the server but needs none of the
// pipeline settings.
type ReportConfig struct {
	ArchiveDir   string `envconfig:"ARCHIVE_DIR" default:"./data"`
	RetentionDir string `envconfig:"RETENTION_DIR" default:"./data/news_archive"`
	ReportDir    string `envconfig:"REPORT_DIR" default:"./data/reports"`
}

func main() {
	dateFlag := flag.String("date", "", "report date as YYYY-MM-DD (default: yesterday)")
	flag.Parse()

	_ = godotenv.Load()
	var cfg ReportConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	target := time.Now().AddDate(0, 0, -1)
	if *dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatalf("invalid -date %q: %v", *dateFlag, err)
		}
		target = parsed
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	archive, err := storage.NewDayArchive(cfg.ArchiveDir)
	if err != nil {
		logger.Fatal("Archive setup failed", zap.Error(err))
	}
	aggregator := services.NewAggregator(archive, cfg.RetentionDir, cfg.ReportDir, logger)

	report, err := aggregator.RunDaily(target)
	if err != nil {
		logger.Fatal("Daily aggregation failed", zap.Error(err))
	}

	logger.Info("Daily aggregation completed",
		zap.String("date", report.Date.Format("2006-01-02")),
		zap.Int("total_records", report.TotalRecords),
		zap.Int("window_records", report.WindowRecords),
		zap.Int("files_rotated", report.FilesRotated),
		zap.String("artifact", report.ArtifactPath))
}
