// Package app builds the collaborators shared by the server, the worker and
// the CLI from the environment.
package app

import (
	"fmt"

	"github.com/artigraph/backend/internal/util"
)

type AIConfig struct {
	Adapter          string
	ChatURL          string
	ChatKey          string
	ExtractionModel  string
	DescriptionModel string
	EmbeddingURL     string
	EmbeddingKey     string
	EmbeddingModel   string
	EmbeddingDim     int
	ParallelRequests int
	TimeoutMin       int
}

type GraphConfig struct {
	ExtractAttempts int
	MaxRetries      int
	AnalyzeBusiness bool
	EmbedAttributes bool
	LinkExisting    bool
	ExistingLimit   int
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string
	Port     string
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

// Config is the complete process configuration. Empty DatabaseURL disables
// the run ledger; empty AuthURL and MasterAPIKey disable authentication.
type Config struct {
	Debug     bool
	LogFormat string

	AI    AIConfig
	Graph GraphConfig
	Neo4j Neo4jConfig

	DatabaseURL    string
	MigrationsPath string

	Port         string
	AuthURL      string
	MasterAPIKey string
	MasterUserID string

	S3       S3Config
	RabbitMQ RabbitMQConfig
}

// LoadConfig reads the configuration from the environment. A .env file is
// loaded first when present.
func LoadConfig() Config {
	util.LoadEnv()

	return Config{
		Debug:     util.GetEnvBool("DEBUG", false),
		LogFormat: util.GetEnvString("LOG_FORMAT", "text"),

		AI: AIConfig{
			Adapter:          util.GetEnvString("AI_ADAPTER", "openai"),
			ChatURL:          util.GetEnv("AI_CHAT_URL"),
			ChatKey:          util.GetEnv("AI_CHAT_KEY"),
			ExtractionModel:  util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			DescriptionModel: util.GetEnv("AI_CHAT_DESCRIBE_MODEL"),
			EmbeddingURL:     util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey:     util.GetEnv("AI_EMBED_KEY"),
			EmbeddingModel:   util.GetEnv("AI_EMBED_MODEL"),
			EmbeddingDim:     util.GetEnvInt("AI_EMBED_DIM", 0),
			ParallelRequests: util.GetEnvInt("AI_PARALLEL_REQ", 4),
			TimeoutMin:       util.GetEnvInt("AI_TIMEOUT_MIN", 10),
		},

		Graph: GraphConfig{
			ExtractAttempts: util.GetEnvInt("GRAPH_EXTRACT_ATTEMPTS", 2),
			MaxRetries:      util.GetEnvInt("GRAPH_MAX_RETRIES", 3),
			AnalyzeBusiness: util.GetEnvBool("GRAPH_ANALYZE_BUSINESS", false),
			EmbedAttributes: util.GetEnvBool("GRAPH_EMBED_ATTRIBUTES", false),
			LinkExisting:    util.GetEnvBool("GRAPH_LINK_EXISTING", false),
			ExistingLimit:   util.GetEnvInt("GRAPH_EXISTING_LIMIT", 500),
		},

		Neo4j: Neo4jConfig{
			URI:      util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
			User:     util.GetEnvString("NEO4J_USER", "neo4j"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
			Database: util.GetEnv("NEO4J_DATABASE"),
		},

		DatabaseURL:    util.GetEnv("DATABASE_URL"),
		MigrationsPath: util.GetEnvString("MIGRATIONS_PATH", "migrations"),

		Port:         util.GetEnvString("PORT", "8080"),
		AuthURL:      util.GetEnv("AUTH_URL"),
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
		MasterUserID: util.GetEnv("MASTER_USER_ID"),

		S3: S3Config{
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
		},

		RabbitMQ: RabbitMQConfig{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
	}
}
