package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	HTTPAddr string `env:"CAMPAIGN_HTTP_ADDR" envDefault:":8080"`

	// Remote agent runtime. An empty AgentBaseURL disables the remote path.
	AgentBaseURL         string        `env:"AGENT_BASE_URL"`
	AgentAPIKey          string        `env:"AGENT_API_KEY"`
	CustomerAgentID      string        `env:"CUSTOMER_SEGMENT_AGENT_ID" envDefault:"customer_segment_agent"`
	ProductAgentID       string        `env:"PRODUCT_ANALYSIS_AGENT_ID" envDefault:"product_analysis_agent"`
	CampaignAgentID      string        `env:"CAMPAIGN_AGENT_ID" envDefault:"campaign_agent"`
	AgentTimeout         time.Duration `env:"AGENT_TIMEOUT" envDefault:"30s"`
	SpecialDayLookahead  int           `env:"SPECIAL_DAY_LOOKAHEAD_DAYS" envDefault:"30"`
	DefaultRegion        string        `env:"DEFAULT_REGION" envDefault:"Marmara"`
	DefaultMedianBasket  float64       `env:"DEFAULT_MEDIAN_BASKET" envDefault:"60"`
	DefaultClimateType   string        `env:"DEFAULT_CLIMATE_TYPE" envDefault:"Temperate"`
	DefaultRegionTrend   string        `env:"DEFAULT_REGION_TREND" envDefault:"SKINCARE"`
	DefaultMaxProducts   int           `env:"DEFAULT_MAX_PRODUCTS" envDefault:"30"`
	DefaultTenantID      string        `env:"DEFAULT_TENANT_ID" envDefault:"farmasi"`
	AgentCacheTTL        time.Duration `env:"AGENT_CACHE_TTL" envDefault:"10m"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	KafkaEnabled         bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBroker          string        `env:"KAFKA_BROKER" envDefault:"kafka:9092"`
	KafkaRequestTopic    string        `env:"KAFKA_REQUEST_TOPIC" envDefault:"campaign.requests"`
	KafkaGeneratedTopic  string        `env:"KAFKA_GENERATED_TOPIC" envDefault:"campaign.generated"`
	KafkaConsumerGroupID string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"campaign-orchestrator"`

	// Store selects the customer/product source: "file" or "mongo".
	Store       string `env:"STORE_BACKEND" envDefault:"file"`
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	MongoURI    string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName string `env:"MONGODB_DB" envDefault:"campaigns"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogFile   string `env:"LOG_FILE" envDefault:"./logs/campaign-api.log"`
}

// RemoteConfigured reports whether a remote agent runtime is available.
func (c *Config) RemoteConfigured() bool {
	return c.AgentBaseURL != ""
}

// Load reads an optional env file and then parses the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if path := envFilePath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SpecialDayLookahead < 0 {
		return nil, fmt.Errorf("SPECIAL_DAY_LOOKAHEAD_DAYS must be non-negative, got %d", cfg.SpecialDayLookahead)
	}
	return cfg, nil
}

// envFilePath returns CONFIG_ENV_FILE, or config/env/<GO_ENV>.env when it exists.
func envFilePath() string {
	if p := os.Getenv("CONFIG_ENV_FILE"); p != "" {
		return p
	}
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}
	p := filepath.Join("config", "env", goEnv+".env")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
