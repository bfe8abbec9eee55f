package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"newsflow/config"
	"newsflow/models"
	"newsflow/pipeline"
	openaiprovider "newsflow/providers/openai"
	"newsflow/services"
	"newsflow/storage"
)

var reportRunsCounter *prometheus.CounterVec

func init() {
	reportRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_report_runs_total",
			Help: "Total number of daily aggregation runs by outcome.",
		},
		[]string{"outcome"},
	)
	prometheus.MustRegister(reportRunsCounter)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup database connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to news database.")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		logging.Fatal("Failed to ensure pgvector extension", zap.Error(err))
	}
	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Article{}, &models.Like{}, &models.ArticleView{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup storage and sinks
	repo := storage.NewArticleRepository(db, logging)

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	coldStore := storage.NewColdStore(s3Client, cfg)

	searchIndex, err := storage.NewSearchIndex(cfg)
	if err != nil {
		logging.Fatal("Search index client creation failed", zap.Error(err))
	}

	archive, err := storage.NewDayArchive(cfg.ArchiveDir)
	if err != nil {
		logging.Fatal("Archive setup failed", zap.Error(err))
	}

	// Setup services
	codec, err := services.NewTiktokenCodec()
	if err != nil {
		logging.Fatal("Token codec setup failed", zap.Error(err))
	}
	provider := openaiprovider.NewClient(cfg, logging)
	enricher := services.NewEnricher(cfg, provider, codec, logging)
	sinkWriter := services.NewSinkWriter(repo, searchIndex, archive, coldStore, logging)
	aggregator := services.NewAggregator(archive, cfg.RetentionDir, cfg.ReportDir, logging)
	recommender := services.NewRecommender(cfg, repo, logging)

	// Setup ingestion pipeline
	wmLogger := pipeline.NewWatermillLogger(logging)
	subscriber, err := pipeline.NewNATSSubscriber(cfg, wmLogger)
	if err != nil {
		logging.Fatal("News subscriber creation failed", zap.Error(err))
	}
	consumer := pipeline.NewConsumer(enricher, sinkWriter, logging)
	router, err := pipeline.NewRouter(consumer, subscriber, cfg.NewsTopic, wmLogger)
	if err != nil {
		logging.Fatal("Pipeline router creation failed", zap.Error(err))
	}
	go func() {
		if err := router.Run(context.Background()); err != nil {
			logging.Fatal("Pipeline router stopped", zap.Error(err))
		}
	}()
	logging.Info("Ingestion pipeline started", zap.String("topic", cfg.NewsTopic))

	// Setup HTTP surface
	engine := gin.Default()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupArticleRoutes(engine, repo, logging)
	setupLikeRoutes(engine, repo, logging)
	setupRecommendationRoutes(engine, recommender, logging)
	setupReportRoutes(engine, aggregator, logging)

	// Setup cron: aggregate the previous day's archive
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.ReportSchedule, func() {
		target := time.Now().AddDate(0, 0, -1)
		logging.Info("Running scheduled daily aggregation...", zap.String("date", target.Format("2006-01-02")))
		report, err := aggregator.RunDaily(target)
		if err != nil {
			reportRunsCounter.WithLabelValues("error").Inc()
			logging.Error("Daily aggregation failed", zap.Error(err))
			return
		}
		reportRunsCounter.WithLabelValues("ok").Inc()
		logging.Info("Daily aggregation completed",
			zap.Int("window_records", report.WindowRecords),
			zap.Int("files_rotated", report.FilesRotated),
			zap.String("artifact", report.ArtifactPath))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupArticleRoutes(router *gin.Engine, repo *storage.ArticleRepository, log *zap.Logger) {
	rg := router.Group("/articles")

	// Article list, embedding excluded; optional ?category= filter
	rg.GET("/", func(c *gin.Context) {
		articles, err := repo.ListWithoutEmbedding(c.Request.Context(), c.Query("category"))
		if err != nil {
			log.Error("Database query for articles failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, articles)
	})

	// Record one read: appends a view event and bumps the views counter
	rg.POST("/:id/view", func(c *gin.Context) {
		articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
			return
		}
		var req struct {
			UserID uint `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := repo.RecordView(c.Request.Context(), req.UserID, uint(articleID)); err != nil {
			log.Error("Failed to record view", zap.Uint64("article_id", articleID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "view recorded"})
	})
}

func setupLikeRoutes(router *gin.Engine, repo *storage.ArticleRepository, log *zap.Logger) {
	rg := router.Group("/likes")

	// Toggle: a repeated like cancels it
	rg.POST("/", func(c *gin.Context) {
		var req struct {
			UserID    uint `json:"user_id" binding:"required"`
			ArticleID uint `json:"article_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		liked, err := repo.ToggleLike(c.Request.Context(), req.UserID, req.ArticleID)
		if err != nil {
			log.Error("Failed to toggle like", zap.Uint("article_id", req.ArticleID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": liked})
	})
}

func setupRecommendationRoutes(router *gin.Engine, recommender *services.Recommender, log *zap.Logger) {
	rg := router.Group("/recommendations")

	rg.GET("/:userID", func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
		}

		ids, err := recommender.Recommend(c.Request.Context(), uint(userID), limit)
		if err != nil {
			if errors.Is(err, services.ErrInsufficientHistory) {
				c.JSON(http.StatusOK, gin.H{
					"article_ids": []uint{},
					"reason":      "insufficient history",
				})
				return
			}
			log.Error("Recommendation failed", zap.Uint64("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendation error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"article_ids": ids})
	})
}

func setupReportRoutes(router *gin.Engine, aggregator *services.Aggregator, log *zap.Logger) {
	rg := router.Group("/reports")

	// Manual trigger; ?date=YYYY-MM-DD, default yesterday
	rg.POST("/run", func(c *gin.Context) {
		target := time.Now().AddDate(0, 0, -1)
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
				return
			}
			target = parsed
		}

		report, err := aggregator.RunDaily(target)
		if err != nil {
			reportRunsCounter.WithLabelValues("error").Inc()
			log.Error("Manual aggregation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed"})
			return
		}
		reportRunsCounter.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, report)
	})
}
