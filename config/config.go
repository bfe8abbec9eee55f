package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"news"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8400"`

	// Inbound article stream (NATS JetStream).
	NATSURL        string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	NewsTopic      string `envconfig:"NEWS_TOPIC" default:"news.inbound"`
	NewsStream     string `envconfig:"NEWS_STREAM" default:"NEWS"`
	ConsumerGroup  string `envconfig:"CONSUMER_GROUP" default:"newsflow-ingest"`
	AckWaitSeconds int    `envconfig:"ACK_WAIT_SECONDS" default:"120"`

	// Text-intelligence provider.
	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIChatModel      string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAITimeoutSeconds int    `envconfig:"OPENAI_TIMEOUT_SECONDS" default:"60"`

	// Enrichment contracts.
	TokenBudget        int `envconfig:"TOKEN_BUDGET" default:"5000"`
	EmbeddingDimension int `envconfig:"EMBEDDING_DIMENSION" default:"1536"`

	// Search index.
	ElasticURL   string `envconfig:"ELASTIC_URL" default:"http://localhost:9200"`
	ElasticIndex string `envconfig:"ELASTIC_INDEX" default:"news"`

	// Daily archive on local durable storage.
	ArchiveDir   string `envconfig:"ARCHIVE_DIR" default:"./data"`
	RetentionDir string `envconfig:"RETENTION_DIR" default:"./data/news_archive"`
	ReportDir    string `envconfig:"REPORT_DIR" default:"./data/reports"`

	// Cold storage (S3-compatible).
	ColdS3Key     string `envconfig:"COLD_S3_KEY" required:"true"`
	ColdS3Secret  string `envconfig:"COLD_S3_SECRET" required:"true"`
	ColdS3URL     string `envconfig:"COLD_S3_URL" required:"true"`
	ColdS3Region  string `envconfig:"COLD_S3_REGION" required:"true"`
	ColdS3Bucket  string `envconfig:"COLD_S3_BUCKET" required:"true"`
	ColdS3KeyBase string `envconfig:"COLD_S3_KEY_BASE" default:"news"`

	// Recommendation scorer weights.
	LikeWeight float64 `envconfig:"LIKE_WEIGHT" default:"3.0"`
	ViewWeight float64 `envconfig:"VIEW_WEIGHT" default:"1.0"`

	// Daily report cron (default: 01:00, for the previous day).
	ReportSchedule string `envconfig:"REPORT_SCHEDULE" default:"0 1 * * *"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// OpenAITimeout returns the per-call timeout for provider requests.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAITimeoutSeconds) * time.Second
}

// AckWait returns how long the broker waits for an ack before redelivery.
func (c *Config) AckWait() time.Duration {
	return time.Duration(c.AckWaitSeconds) * time.Second
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
