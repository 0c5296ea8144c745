package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Credentials CredentialsConfig
	Browser     BrowserConfig
	Session     SessionConfig
	Scraper     ScraperConfig
	Dates       DateConfig
	Export      ExportConfig
	Scheduler   SchedulerConfig
	S3          S3Config
	DBPath      string
	DatabaseURL string
	LogFile     string
	LogMaxSize  int64
	LogLevel    string
	ReplayDir   string
	ConfigDir   string
	Properties  []*PropertyConfig
}

type CredentialsConfig struct {
	Email    string
	Password string
}

type BrowserConfig struct {
	Name        string
	Headless    bool
	UserDataDir string
	NavTimeout  time.Duration
}

type SessionConfig struct {
	ChallengeTimeout time.Duration
	ChallengeGrace   time.Duration
	ChallengeWindow  time.Duration
	WelcomeTimeout   time.Duration
	KeyDelay         time.Duration
}

type ScraperConfig struct {
	SelectorTimeout time.Duration
	SitemapDelay    time.Duration
}

// DateConfig: American means the console shows month-first dates; European
// asks for day-first output regardless.
type DateConfig struct {
	American bool
	European bool
}

type ExportConfig struct {
	OutputDir string
	Formats   []string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

// PropertyConfig is one console property, from config/properties/*.yaml or
// GSC_PROPERTIES.
type PropertyConfig struct {
	ResourceID   string `yaml:"resource_id"`
	Name         string `yaml:"name"`
	SkipSitemaps bool   `yaml:"skip_sitemaps"`
	Disabled     bool   `yaml:"disabled"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Credentials: CredentialsConfig{
			Email:    os.Getenv("GSC_EMAIL"),
			Password: os.Getenv("GSC_PASSWORD"),
		},
		Browser: BrowserConfig{
			Name:        getEnv("BROWSER", "firefox"),
			Headless:    getEnvBool("HEADLESS", true),
			UserDataDir: os.Getenv("BROWSER_PROFILE_DIR"),
			NavTimeout:  getEnvDuration("NAV_TIMEOUT", 60*time.Second),
		},
		Session: SessionConfig{
			ChallengeTimeout: getEnvDuration("CHALLENGE_TIMEOUT", 3*time.Second),
			ChallengeGrace:   getEnvDuration("CHALLENGE_GRACE", 10*time.Second),
			ChallengeWindow:  getEnvDuration("CHALLENGE_WINDOW", 30*time.Second),
			WelcomeTimeout:   getEnvDuration("WELCOME_TIMEOUT", 0),
			KeyDelay:         getEnvDuration("KEY_DELAY", 50*time.Millisecond),
		},
		Scraper: ScraperConfig{
			SelectorTimeout: getEnvDuration("SELECTOR_TIMEOUT", 30*time.Second),
			SitemapDelay:    getEnvDuration("SITEMAP_DELAY", 2*time.Second),
		},
		Dates: DateConfig{
			American: getEnvBool("AMERICAN_DATES", false),
			European: getEnvBool("EUROPEAN_DATES", false),
		},
		Export: ExportConfig{
			OutputDir: getEnv("OUTPUT_DIR", "exports"),
			Formats:   splitList(getEnv("EXPORT_FORMATS", "csv")),
		},
		Scheduler: SchedulerConfig{
			Cron:     os.Getenv("SCRAPE_CRON"),
			Interval: getEnvDuration("SCRAPE_INTERVAL", 0),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("S3_PREFIX", "gsc-coverage"),
		},
		DBPath:      getEnv("DB_PATH", "scraper.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogFile:     getEnv("LOG_FILE", "daemon.log"),
		LogMaxSize:  int64(getEnvInt("LOG_MAX_SIZE", 2*1024*1024)),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ReplayDir:   os.Getenv("REPLAY_DIR"),
		ConfigDir:   getEnv("CONFIG_DIR", "config"),
	}

	if err := cfg.loadPropertyConfigs(filepath.Join(cfg.ConfigDir, "properties")); err != nil {
		return nil, err
	}
	cfg.mergeEnvProperties(os.Getenv("GSC_PROPERTIES"))

	return cfg, nil
}

// CatalogPath is the optional report catalog override.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.ConfigDir, "reports.yaml")
}

// PropertyIDs lists the enabled properties in configuration order.
func (c *Config) PropertyIDs() []string {
	var ids []string
	for _, p := range c.Properties {
		if !p.Disabled {
			ids = append(ids, p.ResourceID)
		}
	}
	return ids
}

// Property returns the settings of a property, or defaults for one picked
// from the console.
func (c *Config) Property(id string) *PropertyConfig {
	for _, p := range c.Properties {
		if p.ResourceID == id {
			return p
		}
	}
	return &PropertyConfig{ResourceID: id, Name: id}
}

// Restrict narrows the run to ids, keeping their file settings where known.
func (c *Config) Restrict(ids []string) {
	var kept []*PropertyConfig
	for _, id := range ids {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		p := c.Property(id)
		p.Disabled = false
		kept = append(kept, p)
	}
	c.Properties = kept
}

func (c *Config) loadPropertyConfigs(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(configDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var prop PropertyConfig
		if err := yaml.Unmarshal(data, &prop); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if prop.ResourceID == "" {
			return fmt.Errorf("%s: resource_id is required", path)
		}
		if prop.Name == "" {
			prop.Name = prop.ResourceID
		}
		c.Properties = append(c.Properties, &prop)
	}

	return nil
}

func (c *Config) mergeEnvProperties(list string) {
	for _, id := range splitList(list) {
		known := false
		for _, p := range c.Properties {
			if p.ResourceID == id {
				known = true
				break
			}
		}
		if !known {
			c.Properties = append(c.Properties, &PropertyConfig{ResourceID: id, Name: id})
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
