package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string
	LogPath     string
	LogLevel    string

	Ahrefs     AhrefsConfig
	DataForSEO DataForSEOConfig
	OpenAI     OpenAIConfig
	Qdrant     QdrantConfig
	S3         S3Config
	Refresh    RefreshConfig

	ImportQueueSize int
}

type AhrefsConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
}

type DataForSEOConfig struct {
	Login     string `yaml:"-"`
	Password  string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	PageLimit int    `yaml:"page_limit"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type QdrantConfig struct {
	URL        string `yaml:"-"`
	APIKey     string `yaml:"-"`
	Collection string `yaml:"collection"`
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type RefreshConfig struct {
	Cron      string        `yaml:"-"`
	BatchSize int           `yaml:"batch_size"`
	MaxAge    time.Duration `yaml:"max_age"`
}

// providerOverrides is the shape of the optional providers.yaml file. It only
// carries non-secret tunables; credentials always come from the environment.
type providerOverrides struct {
	Ahrefs     *AhrefsConfig     `yaml:"ahrefs"`
	DataForSEO *DataForSEOConfig `yaml:"dataforseo"`
	OpenAI     *OpenAIConfig     `yaml:"openai"`
	Qdrant     *QdrantConfig     `yaml:"qdrant"`
	Refresh    *RefreshConfig    `yaml:"refresh"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost/linkqualification"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogPath:     getEnv("LOG_PATH", "daemon.log"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Ahrefs: AhrefsConfig{
			APIKey:  os.Getenv("AHREFS_API_KEY"),
			BaseURL: "https://api.ahrefs.com/v2",
		},
		DataForSEO: DataForSEOConfig{
			Login:     os.Getenv("DATAFORSEO_LOGIN"),
			Password:  os.Getenv("DATAFORSEO_PASSWORD"),
			BaseURL:   "https://api.dataforseo.com/v3",
			PageLimit: getEnvInt("DATAFORSEO_PAGE_LIMIT", 1000),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			URL:        os.Getenv("QDRANT_URL"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: getEnv("QDRANT_COLLECTION", "link-qualification"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Refresh: RefreshConfig{
			Cron:      os.Getenv("REFRESH_CRON"),
			BatchSize: getEnvInt("REFRESH_BATCH_SIZE", 20),
		},
		ImportQueueSize: getEnvInt("IMPORT_QUEUE_SIZE", 16),
	}

	if maxAge := os.Getenv("REFRESH_MAX_AGE"); maxAge != "" {
		if d, err := time.ParseDuration(maxAge); err == nil {
			cfg.Refresh.MaxAge = d
		}
	}
	if cfg.Refresh.MaxAge == 0 {
		cfg.Refresh.MaxAge = 30 * 24 * time.Hour
	}

	if err := cfg.loadProviderOverrides("providers.yaml"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadProviderOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var o providerOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return err
	}

	if o.Ahrefs != nil && o.Ahrefs.BaseURL != "" {
		c.Ahrefs.BaseURL = o.Ahrefs.BaseURL
	}
	if o.DataForSEO != nil {
		if o.DataForSEO.BaseURL != "" {
			c.DataForSEO.BaseURL = o.DataForSEO.BaseURL
		}
		if o.DataForSEO.PageLimit > 0 {
			c.DataForSEO.PageLimit = o.DataForSEO.PageLimit
		}
	}
	if o.OpenAI != nil {
		if o.OpenAI.BaseURL != "" {
			c.OpenAI.BaseURL = o.OpenAI.BaseURL
		}
		if o.OpenAI.Model != "" {
			c.OpenAI.Model = o.OpenAI.Model
		}
	}
	if o.Qdrant != nil && o.Qdrant.Collection != "" {
		c.Qdrant.Collection = o.Qdrant.Collection
	}
	if o.Refresh != nil {
		if o.Refresh.BatchSize > 0 {
			c.Refresh.BatchSize = o.Refresh.BatchSize
		}
		if o.Refresh.MaxAge > 0 {
			c.Refresh.MaxAge = o.Refresh.MaxAge
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
