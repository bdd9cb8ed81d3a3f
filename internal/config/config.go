// Package config loads docbind settings from the environment (DOCBIND_*)
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. DOCBIND_PORT.
const EnvPrefix = "DOCBIND"

type Config struct {
	Port string

	// Auth
	APIKey string

	// Storage
	DatabasePath string

	// Job runner
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Normalization
	MaxConcurrentNormalize int
	RenderDPI              int
	MaxImagePixels         int
	StrictTypes            bool
	RenderTimeout          time.Duration

	// Upload limits
	MaxUploadBytes int64

	// OCR
	OCRMaxWorkers    int
	OCRLanguages     []string
	OCRMinWords      int
	MaxConcurrentOCR int64

	// Rate limiting, per client IP
	RateLimitEvery time.Duration
	RateLimitBurst int

	// Poppler
	PdftoppmPath  string
	PdfinfoPath   string
	PdftotextPath string
}

var defaults = map[string]any{
	"port":                     "8090",
	"database_path":            "docbind.db",
	"worker_count":             2,
	"max_queue_size":           50,
	"job_ttl":                  time.Hour,
	"max_concurrent_normalize": 4,
	"render_dpi":               150,
	"max_image_pixels":         4096,
	"strict_types":             false,
	"render_timeout":           time.Duration(0),
	"max_upload_bytes":         int64(52428800), // 50MB
	"ocr_max_workers":          5,
	"ocr_languages":            []string{"eng"},
	"ocr_min_words":            10,
	"max_concurrent_ocr":       2,
	"rate_limit_every":         200 * time.Millisecond,
	"rate_limit_burst":         30,
	"pdftoppm_path":            "pdftoppm",
	"pdfinfo_path":             "pdfinfo",
	"pdftotext_path":           "pdftotext",
}

// New returns a viper instance with docbind's defaults and environment
// binding. configFile may be empty.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetDefault("api_key", "")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load reads configuration from the environment and, when DOCBIND_CONFIG is
// set, from that file.
func Load() (Config, error) {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()

	v, err := New(env.GetString("config"))
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(v), nil
}

// LoadFrom builds a Config from v. Non-positive numbers fall back to their
// defaults.
func LoadFrom(v *viper.Viper) Config {
	cfg := Config{
		Port:   v.GetString("port"),
		APIKey: v.GetString("api_key"),

		DatabasePath: v.GetString("database_path"),

		WorkerCount:  v.GetInt("worker_count"),
		MaxQueueSize: v.GetInt("max_queue_size"),
		JobTTL:       v.GetDuration("job_ttl"),

		MaxConcurrentNormalize: v.GetInt("max_concurrent_normalize"),
		RenderDPI:              v.GetInt("render_dpi"),
		MaxImagePixels:         v.GetInt("max_image_pixels"),
		StrictTypes:            v.GetBool("strict_types"),
		RenderTimeout:          v.GetDuration("render_timeout"),

		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		OCRMaxWorkers:    v.GetInt("ocr_max_workers"),
		OCRLanguages:     languages(v.GetStringSlice("ocr_languages")),
		OCRMinWords:      v.GetInt("ocr_min_words"),
		MaxConcurrentOCR: v.GetInt64("max_concurrent_ocr"),

		RateLimitEvery: v.GetDuration("rate_limit_every"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),

		PdftoppmPath:  v.GetString("pdftoppm_path"),
		PdfinfoPath:   v.GetString("pdfinfo_path"),
		PdftotextPath: v.GetString("pdftotext_path"),
	}

	if cfg.Port == "" {
		cfg.Port = "8090"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "docbind.db"
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.MaxConcurrentNormalize <= 0 {
		cfg.MaxConcurrentNormalize = 4
	}
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 150
	}
	if cfg.MaxImagePixels <= 0 {
		cfg.MaxImagePixels = 4096
	}
	if cfg.RenderTimeout < 0 {
		cfg.RenderTimeout = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.OCRMaxWorkers <= 0 {
		cfg.OCRMaxWorkers = 5
	}
	if cfg.OCRMinWords <= 0 {
		cfg.OCRMinWords = 10
	}
	if cfg.MaxConcurrentOCR <= 0 {
		cfg.MaxConcurrentOCR = 2
	}
	if cfg.RateLimitEvery <= 0 {
		cfg.RateLimitEvery = 200 * time.Millisecond
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	if cfg.PdfinfoPath == "" {
		cfg.PdfinfoPath = "pdfinfo"
	}
	if cfg.PdftotextPath == "" {
		cfg.PdftotextPath = "pdftotext"
	}

	return cfg
}

// Validate checks the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("DOCBIND_API_KEY is required")
	}
	return nil
}

// languages accepts both a list and a single "eng+deu" or "eng,deu" string,
// as environment variables arrive as one value.
func languages(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	return out
}
