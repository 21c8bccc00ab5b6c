package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fotocasa-scraper/utils"
)

// defaultUserAgents is the rotation list used when USER_AGENTS is unset.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StartURLsPath string
	LinksPath     string
	ListingsPath  string
	ErrorLogPath  string
	LogLevel      string

	ChromeBin    string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgents   []string

	WaitTimeout time.Duration
	PageTimeout time.Duration

	Pacing Pacing

	SeedScrollStep    int
	ExtractScrollStep int
	MaxItemsPerURL    int

	RobotsURL   string
	RobotsAgent string

	ScrapeCron string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	S3 S3Config

	SchemaPath string
	Schema     PageSchema
}

// Pacing groups every random pause the pipeline takes.
type Pacing struct {
	AfterNavigate  utils.Range
	BetweenListing utils.Range
	SeedScroll     utils.Range
	ExtractScroll  utils.Range
	BetweenItems   utils.Range
	BetweenStarts  utils.Range
	EmptyResult    utils.Range
	BetweenCounts  utils.Range
}

// S3Config holds the optional CSV export target.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether an export bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		StartURLsPath: getEnv("START_URLS_PATH", "datos/start_urls.csv"),
		LinksPath:     getEnv("LINKS_PATH", "datos/links_anuncios.csv"),
		ListingsPath:  getEnv("LISTINGS_PATH", "datos/anuncios.csv"),
		ErrorLogPath:  getEnv("ERROR_LOG_PATH", "scraping_errors.log"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		ChromeBin:    getEnv("CHROME_BIN", ""),
		Headless:     getEnvBool("HEADLESS", true),
		WindowWidth:  getEnvInt("WINDOW_WIDTH", 1920),
		WindowHeight: getEnvInt("WINDOW_HEIGHT", 1080),
		UserAgents:   getEnvList("USER_AGENTS", defaultUserAgents),

		WaitTimeout: getEnvDuration("WAIT_TIMEOUT", 10*time.Second),
		PageTimeout: getEnvDuration("PAGE_TIMEOUT", 5*time.Minute),

		Pacing: Pacing{
			AfterNavigate:  getEnvRange("PAUSE_AFTER_NAVIGATE", 5*time.Second, 15*time.Second),
			BetweenListing: getEnvRange("PAUSE_BETWEEN_LISTINGS", 5*time.Second, 15*time.Second),
			SeedScroll:     getEnvRange("PAUSE_SEED_SCROLL", 1*time.Second, 5*time.Second),
			ExtractScroll:  getEnvRange("PAUSE_EXTRACT_SCROLL", 1*time.Second, 3*time.Second),
			BetweenItems:   getEnvRange("PAUSE_BETWEEN_ITEMS", 5*time.Second, 15*time.Second),
			BetweenStarts:  getEnvRange("PAUSE_BETWEEN_START_URLS", 60*time.Second, 90*time.Second),
			EmptyResult:    getEnvRange("PAUSE_EMPTY_RESULT", 1*time.Second, 5*time.Second),
			BetweenCounts:  getEnvRange("PAUSE_BETWEEN_COUNTS", 5*time.Second, 15*time.Second),
		},

		SeedScrollStep:    getEnvInt("SEED_SCROLL_STEP", 700),
		ExtractScrollStep: getEnvInt("EXTRACT_SCROLL_STEP", 500),
		MaxItemsPerURL:    getEnvInt("MAX_ITEMS_PER_URL", 0),

		RobotsURL:   getEnv("ROBOTS_URL", "https://www.fotocasa.es/robots.txt"),
		RobotsAgent: getEnv("ROBOTS_AGENT", "*"),

		ScrapeCron: getEnv("SCRAPE_CRON", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "fotocasa"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 5),

		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "eu-west-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Prefix:          getEnv("S3_PREFIX", "fotocasa"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},

		SchemaPath: getEnv("PAGE_SCHEMA_PATH", ""),
	}

	schema, err := LoadSchema(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	cfg.Schema = schema

	return cfg, nil
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

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a "|"-separated value.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// getEnvRange parses "min,max" durations such as "60s,90s".
func getEnvRange(key string, min, max time.Duration) utils.Range {
	r := utils.Range{Min: min, Max: max}
	val := os.Getenv(key)
	if val == "" {
		return r
	}
	lo, hi, ok := strings.Cut(val, ",")
	if !ok {
		return r
	}
	dMin, err1 := time.ParseDuration(strings.TrimSpace(lo))
	dMax, err2 := time.ParseDuration(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil || dMax < dMin {
		return r
	}
	return utils.Range{Min: dMin, Max: dMax}
}
