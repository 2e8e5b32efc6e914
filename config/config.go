package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from defaults, then an
// optional YAML file, then the environment (including a .env file).
type Config struct {
	InputPath  string `yaml:"input_path"`
	InputSheet string `yaml:"input_sheet"`
	OutputDir  string `yaml:"output_dir"`

	Classifier ClassifierConfig `yaml:"classifier"`
	Analysis   AnalysisConfig   `yaml:"analysis"`

	ReportDBEnabled  bool   `yaml:"report_db_enabled"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
	MaxRetries       int    `yaml:"max_retries"`

	MetricsTextfile string `yaml:"metrics_textfile"`
	LogLevel        string `yaml:"log_level"`
}

// ClassifierConfig describes the sentiment model and how it is batched.
type ClassifierConfig struct {
	BatchSize     int      `yaml:"batch_size"`
	MaxLength     int      `yaml:"max_length"`
	ModelPath     string   `yaml:"model_path"`
	TokenizerPath string   `yaml:"tokenizer_path"`
	OrtLibrary    string   `yaml:"ort_library"`
	Labels        []string `yaml:"labels"`
}

// AnalysisConfig tunes the two reports.
type AnalysisConfig struct {
	TopPerCategory    int     `yaml:"top_per_category"`
	TailPercentile    float64 `yaml:"tail_percentile"`
	TopComplaintWords int     `yaml:"top_complaint_words"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		InputPath:  "reviews.xlsx",
		InputSheet: "in",
		OutputDir:  ".",
		Classifier: ClassifierConfig{
			BatchSize:     64,
			MaxLength:     512,
			ModelPath:     "./assets/distilbert-sst2/model.onnx",
			TokenizerPath: "./assets/distilbert-sst2/tokenizer.json",
			Labels:        []string{"NEGATIVE", "POSITIVE"},
		},
		Analysis: AnalysisConfig{
			TopPerCategory:    5,
			TailPercentile:    0.10,
			TopComplaintWords: 10,
		},
		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "reviews",
		PostgresDB:      "review_insights",
		PostgresSSLMode: "disable",
		MaxRetries:      3,
		LogLevel:        "info",
	}
}

// Load reads config.yaml (or CONFIG_FILE), the .env file and the environment, and
// returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Default()
	path := getEnv("CONFIG_FILE", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.InputPath = getEnv("INPUT_PATH", c.InputPath)
	c.InputSheet = getEnv("INPUT_SHEET", c.InputSheet)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)

	c.Classifier.BatchSize = getEnvInt("BATCH_SIZE", c.Classifier.BatchSize)
	c.Classifier.MaxLength = getEnvInt("MAX_LENGTH", c.Classifier.MaxLength)
	c.Classifier.ModelPath = getEnv("MODEL_PATH", c.Classifier.ModelPath)
	c.Classifier.TokenizerPath = getEnv("TOKENIZER_PATH", c.Classifier.TokenizerPath)
	c.Classifier.OrtLibrary = getEnv("ORT_LIBRARY", c.Classifier.OrtLibrary)
	if v := getEnv("MODEL_LABELS", ""); v != "" {
		c.Classifier.Labels = splitList(v)
	}

	c.Analysis.TopPerCategory = getEnvInt("TOP_PER_CATEGORY", c.Analysis.TopPerCategory)
	c.Analysis.TailPercentile = getEnvFloat("TAIL_PERCENTILE", c.Analysis.TailPercentile)
	c.Analysis.TopComplaintWords = getEnvInt("TOP_COMPLAINT_WORDS", c.Analysis.TopComplaintWords)

	c.ReportDBEnabled = getEnvBool("REPORT_DB_ENABLED", c.ReportDBEnabled)
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)

	c.MetricsTextfile = getEnv("METRICS_TEXTFILE", c.MetricsTextfile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.InputPath) == "":
		return errors.New("config: input path is required")
	case c.Classifier.BatchSize <= 0:
		return fmt.Errorf("config: batch size must be positive, got %d", c.Classifier.BatchSize)
	case c.Classifier.MaxLength <= 0:
		return fmt.Errorf("config: max length must be positive, got %d", c.Classifier.MaxLength)
	case len(c.Classifier.Labels) < 2:
		return fmt.Errorf("config: need at least two model labels, got %v", c.Classifier.Labels)
	case c.Analysis.TopPerCategory <= 0:
		return fmt.Errorf("config: top per category must be positive, got %d", c.Analysis.TopPerCategory)
	case c.Analysis.TailPercentile < 0 || c.Analysis.TailPercentile > 1:
		return fmt.Errorf("config: tail percentile must be within [0,1], got %g", c.Analysis.TailPercentile)
	case c.Analysis.TopComplaintWords <= 0:
		return fmt.Errorf("config: top complaint words must be positive, got %d", c.Analysis.TopComplaintWords)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
