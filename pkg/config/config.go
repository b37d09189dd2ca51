package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Milvus     MilvusConfig
	Redis      RedisConfig
	Insight    InsightConfig
	Assessment AssessmentConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
	RateLimitRPM int
}

type SQLiteConfig struct {
	Path string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	ReportTTL int
}

type InsightConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
	MaxRetries  int
}

type AssessmentConfig struct {
	WindowDays       int
	TopK             int
	MinSimilarity    float64
	InsightWeight    float64
	SimilarityWeight float64
	FreshChurnDays   int
	FreshChurnBoost  float64
	HighValueMonthly float64
	BatchConcurrency int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/churnsight")

	viper.SetEnvPrefix("CHURNSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.rateLimitRPM", 60)

	viper.SetDefault("sqlite.path", "./data/churnsight.db")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "customer_behaviors")
	viper.SetDefault("milvus.vectorDim", 768)

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.reportTTL", 900)

	viper.SetDefault("insight.model", "gpt-4")
	viper.SetDefault("insight.temperature", 0.2)
	viper.SetDefault("insight.maxTokens", 1024)
	viper.SetDefault("insight.timeoutSec", 10)
	viper.SetDefault("insight.maxRetries", 3)

	viper.SetDefault("assessment.windowDays", 90)
	viper.SetDefault("assessment.topK", 5)
	viper.SetDefault("assessment.minSimilarity", 0.7)
	viper.SetDefault("assessment.insightWeight", 0.6)
	viper.SetDefault("assessment.similarityWeight", 0.4)
	viper.SetDefault("assessment.freshChurnDays", 60)
	viper.SetDefault("assessment.freshChurnBoost", 1.5)
	viper.SetDefault("assessment.highValueMonthly", 500)
	viper.SetDefault("assessment.batchConcurrency", 4)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
