package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the config directory under XDG_CONFIG_HOME.
const AppName = "inkscan"

// ConfigFileEnv points at an explicit YAML config file.
const ConfigFileEnv = "INKSCAN_CONFIG"

var (
	ErrUnknownEngine   = errors.New("invalid OCR_ENGINE: must be tesseract or mistral")
	ErrInvalidWorkers  = errors.New("invalid MAX_PAGE_WORKERS: must be positive")
	ErrInvalidMaxPages = errors.New("invalid MAX_PAGES: must be positive")
	ErrMissingSecret   = errors.New("INTERNAL_SHARED_SECRET must be at least 32 characters")
	ErrMissingAPIKey   = errors.New("MISTRAL_API_KEY is required for the mistral engine")
)

type Config struct {
	// Server
	Port string `yaml:"port"`

	// Secrets
	InternalSharedSecret string `yaml:"-"`
	MistralAPIKey        string `yaml:"-"`

	// OCR
	OCREngine         string        `yaml:"ocrEngine"`
	OCRLanguages      []string      `yaml:"ocrLanguages"`
	OCRPageSegMode    int           `yaml:"ocrPageSegMode"`
	MistralOCRModel   string        `yaml:"mistralOcrModel"`
	MistralEndpoint   string        `yaml:"mistralEndpoint"`
	OCRRequestTimeout time.Duration `yaml:"ocrRequestTimeout"`

	// Recognition
	MaxPageWorkers int    `yaml:"maxPageWorkers"` // per-scan page OCR workers
	PageSeparator  string `yaml:"pageSeparator"`

	// Capture limits
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	MaxPages       int   `yaml:"maxPages"`

	// Poppler rendering for scanned PDFs
	PDFRenderDPI    int           `yaml:"pdfRenderDpi"`
	PDFInfoTimeout  time.Duration `yaml:"pdfinfoTimeout"`
	PDFToPPMTimeout time.Duration `yaml:"pdftoppmTimeout"`

	// Concurrency
	MaxConcurrentRequests int64 `yaml:"maxConcurrentRequests"`
	MaxOCRConcurrent      int64 `yaml:"maxOcrConcurrent"`

	// Server timeouts
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ScanTimeout       time.Duration `yaml:"scanTimeout"`

	// rate limiting (per IP)
	RateLimitEvery time.Duration `yaml:"rateLimitEvery"`
	RateLimitBurst int           `yaml:"rateLimitBurst"`

	// housekeeping
	CleanupInterval time.Duration `yaml:"cleanupInterval"`

	// health
	HealthDegradeRatio float64 `yaml:"healthDegradeRatio"`

	// http
	MaxHeaderBytes int `yaml:"maxHeaderBytes"`

	// logging
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

func Defaults() Config {
	return Config{
		Port: "8080",

		OCREngine:         "tesseract",
		OCRLanguages:      []string{"eng"},
		OCRPageSegMode:    3,
		MistralOCRModel:   "mistral-ocr-latest",
		MistralEndpoint:   "https://api.mistral.ai/v1/ocr",
		OCRRequestTimeout: 60 * time.Second,

		MaxPageWorkers: 4,
		PageSeparator:  "\n",

		MaxUploadBytes: 64 << 20,
		MaxPages:       100,

		PDFRenderDPI:    300,
		PDFInfoTimeout:  5 * time.Second,
		PDFToPPMTimeout: 30 * time.Second,

		MaxConcurrentRequests: 15,
		MaxOCRConcurrent:      3,

		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
		ScanTimeout:       160 * time.Second,

		RateLimitEvery: 600 * time.Millisecond,
		RateLimitBurst: 20,

		CleanupInterval: 5 * time.Minute,

		HealthDegradeRatio: 0.9,

		MaxHeaderBytes: 1 << 20,

		// LogLevel and LogFormat are left empty so each front end picks its
		// own default.
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	file := FindConfigFile(path)
	if file == "" && path != "" {
		return cfg, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
	}
	if file != "" {
		if err := cfg.mergeFile(file); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// FindConfigFile resolves the YAML file to load: the explicit path, then
// $INKSCAN_CONFIG, then $XDG_CONFIG_HOME/inkscan/config.yaml. It returns ""
// when none exists.
func FindConfigFile(path string) string {
	candidates := []string{path, os.Getenv(ConfigFileEnv)}
	if path == "" {
		candidates = append(candidates, filepath.Join(xdg.ConfigHome, AppName, "config.yaml"))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c
		}
		if c == path {
			return ""
		}
	}
	return ""
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envStr("PORT", c.Port)

	c.InternalSharedSecret = envStr("INTERNAL_SHARED_SECRET", c.InternalSharedSecret)
	c.MistralAPIKey = envStr("MISTRAL_API_KEY", c.MistralAPIKey)

	c.OCREngine = strings.ToLower(envStr("OCR_ENGINE", c.OCREngine))
	c.OCRLanguages = envList("OCR_LANGUAGES", c.OCRLanguages)
	c.OCRPageSegMode = envInt("OCR_PAGE_SEG_MODE", c.OCRPageSegMode)
	c.MistralOCRModel = envStr("MISTRAL_OCR_MODEL", c.MistralOCRModel)
	c.MistralEndpoint = envStr("MISTRAL_OCR_ENDPOINT", c.MistralEndpoint)
	c.OCRRequestTimeout = envDur("OCR_REQUEST_TIMEOUT", c.OCRRequestTimeout)

	c.MaxPageWorkers = envInt("MAX_PAGE_WORKERS", c.MaxPageWorkers)
	c.PageSeparator = envRaw("PAGE_SEPARATOR", c.PageSeparator)

	c.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.MaxPages = envInt("MAX_PAGES", c.MaxPages)

	c.PDFRenderDPI = envInt("PDF_RENDER_DPI", c.PDFRenderDPI)
	c.PDFInfoTimeout = envDur("PDFINFO_TIMEOUT", c.PDFInfoTimeout)
	c.PDFToPPMTimeout = envDur("PDFTOPPM_TIMEOUT", c.PDFToPPMTimeout)

	c.MaxConcurrentRequests = int64(envInt("MAX_CONCURRENT_REQUESTS", int(c.MaxConcurrentRequests)))
	c.MaxOCRConcurrent = int64(envInt("MAX_OCR_CONCURRENT", int(c.MaxOCRConcurrent)))

	c.ReadHeaderTimeout = envDur("READ_HEADER_TIMEOUT", c.ReadHeaderTimeout)
	c.ReadTimeout = envDur("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = envDur("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = envDur("IDLE_TIMEOUT", c.IdleTimeout)
	c.ScanTimeout = envDur("SCAN_TIMEOUT", c.ScanTimeout)

	c.RateLimitEvery = envDur("RATE_LIMIT_EVERY", c.RateLimitEvery)
	c.RateLimitBurst = envInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.CleanupInterval = envDur("CLEANUP_INTERVAL", c.CleanupInterval)

	c.HealthDegradeRatio = envFloat("HEALTH_DEGRADE_RATIO", c.HealthDegradeRatio)

	c.MaxHeaderBytes = envInt("MAX_HEADER_BYTES", c.MaxHeaderBytes)

	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envStr("LOG_FORMAT", c.LogFormat)
}

// Validate checks the settings every front end depends on.
func (c Config) Validate() error {
	switch c.OCREngine {
	case "tesseract":
	case "mistral":
		if strings.TrimSpace(c.MistralAPIKey) == "" {
			return ErrMissingAPIKey
		}
	default:
		return ErrUnknownEngine
	}
	if c.MaxPageWorkers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	return nil
}

// ValidateServer adds the checks that only apply to the HTTP server.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(c.InternalSharedSecret)) < 32 {
		return ErrMissingSecret
	}
	return nil
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// envRaw keeps surrounding whitespace; separators are mostly whitespace.
func envRaw(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(v)
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
