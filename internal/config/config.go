// Package config provides centralized configuration for autoblog.
// Values come from defaults, an optional YAML file, a .env file and the environment, in
// increasing order of precedence. Config is loaded once and passed by value.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read when present and no --config was given.
const DefaultConfigFile = "autoblog.yaml"

// Config holds all configuration values.
type Config struct {
	// Discovery and retrieval credentials.
	PerplexityKey   string
	PerplexityModel string
	GoogleAPIKey    string
	GoogleCSEID     string
	FirecrawlKey    string
	Feeds           []string

	// Language models. PrimaryLLM is tried first: "claude", "openai", "gemini" or "ollama".
	PrimaryLLM     string
	AnthropicKey   string
	AnthropicModel string
	OpenAIKey      string
	OpenAIModel    string
	GeminiKey      string
	GeminiModel    string
	OllamaEnabled  bool
	OllamaURL      string
	OllamaModel    string
	// UseStubs swaps every model client and the page extractor for canned offline answers.
	// It is a demo mode: publishing refuses to run with it.
	UseStubs bool

	// Images.
	UnsplashKey string
	PexelsKey   string

	// Publishing. Publisher is "mdx", "wordpress" or "cms".
	Publisher       string
	WordPressURL    string
	WordPressKey    string
	CMSURL          string
	CMSKey          string
	SiteName        string
	SiteURL         string
	Author          string
	ContentDir      string
	ImageDir        string
	ImagePublicPath string

	// Storage.
	CacheBackend string // "file" or "redis"
	CacheDir     string
	RedisURL     string
	ReportsDir   string
	DBPath       string

	// Scheduling and pacing.
	PostsPerDay   int
	ActiveHours   string
	BatchesPerDay int
	Timezone      string
	ItemDelayMin  time.Duration
	ItemDelayMax  time.Duration
	BatchDelayMin time.Duration
	BatchDelayMax time.Duration
	DedupWindow   time.Duration

	// Article bounds.
	MinWords int
	MaxWords int

	// HTTP.
	HTTPTimeout time.Duration
	ProviderRPS float64
	ServeAddr   string

	LogLevel string
}

// Options tells Load where to look for files.
type Options struct {
	// ConfigFile is an explicit YAML file; it must exist when set.
	ConfigFile string
	// EnvFile defaults to ".env"; a missing file is ignored.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("perplexity_model", "sonar")
	v.SetDefault("google_cse_id", "017576662512468239146:omuauf_lfve")
	v.SetDefault("feeds", []string{
		"https://techcrunch.com/feed/",
		"https://www.theverge.com/rss/index.xml",
		"https://feeds.arstechnica.com/arstechnica/index",
	})
	v.SetDefault("primary_llm", "claude")
	v.SetDefault("anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("ollama_enabled", false)
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3")
	v.SetDefault("use_stubs", false)
	v.SetDefault("publisher", "mdx")
	v.SetDefault("site_name", "Trends Today")
	v.SetDefault("site_url", "https://trends-today.vercel.app")
	v.SetDefault("author", "Trends Today Team")
	v.SetDefault("content_dir", "content/posts")
	v.SetDefault("image_dir", "public/images")
	v.SetDefault("image_public_path", "/images")
	v.SetDefault("cache_backend", "file")
	v.SetDefault("cache_dir", "cache")
	v.SetDefault("redis_url", "")
	v.SetDefault("reports_dir", "reports")
	v.SetDefault("db_path", "data/autoblog.db")
	v.SetDefault("posts_per_day", 15)
	v.SetDefault("active_hours", "08-23")
	v.SetDefault("batches_per_day", 3)
	v.SetDefault("timezone", "Local")
	v.SetDefault("item_delay_min", 30*time.Second)
	v.SetDefault("item_delay_max", 90*time.Second)
	v.SetDefault("batch_delay_min", 180*time.Second)
	v.SetDefault("batch_delay_max", 300*time.Second)
	v.SetDefault("dedup_window", 7*24*time.Hour)
	v.SetDefault("min_words", 600)
	v.SetDefault("max_words", 900)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("provider_rps", 2.0)
	v.SetDefault("serve_addr", ":8080")
	v.SetDefault("log_level", "info")
}

// Load reads configuration and validates it.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	switch {
	case opts.ConfigFile != "":
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	case fileExists(DefaultConfigFile):
		v.SetConfigFile(DefaultConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", DefaultConfigFile, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		PerplexityKey:   v.GetString("perplexity_api_key"),
		PerplexityModel: v.GetString("perplexity_model"),
		GoogleAPIKey:    v.GetString("google_api_key"),
		GoogleCSEID:     v.GetString("google_cse_id"),
		FirecrawlKey:    v.GetString("firecrawl_api_key"),
		Feeds:           stringList(v, "feeds"),
		PrimaryLLM:      strings.ToLower(v.GetString("primary_llm")),
		AnthropicKey:    v.GetString("anthropic_api_key"),
		AnthropicModel:  v.GetString("anthropic_model"),
		OpenAIKey:       v.GetString("openai_api_key"),
		OpenAIModel:     v.GetString("openai_model"),
		GeminiKey:       v.GetString("google_gemini_api_key"),
		GeminiModel:     v.GetString("gemini_model"),
		OllamaEnabled:   v.GetBool("ollama_enabled"),
		OllamaURL:       v.GetString("ollama_url"),
		OllamaModel:     v.GetString("ollama_model"),
		UseStubs:        v.GetBool("use_stubs"),
		UnsplashKey:     v.GetString("unsplash_access_key"),
		PexelsKey:       v.GetString("pexels_api_key"),
		Publisher:       strings.ToLower(v.GetString("publisher")),
		WordPressURL:    v.GetString("wordpress_api_url"),
		WordPressKey:    v.GetString("wordpress_api_key"),
		CMSURL:          v.GetString("cms_api_url"),
		CMSKey:          v.GetString("cms_api_key"),
		SiteName:        v.GetString("site_name"),
		SiteURL:         v.GetString("site_url"),
		Author:          v.GetString("author"),
		ContentDir:      v.GetString("content_dir"),
		ImageDir:        v.GetString("image_dir"),
		ImagePublicPath: v.GetString("image_public_path"),
		CacheBackend:    strings.ToLower(v.GetString("cache_backend")),
		CacheDir:        v.GetString("cache_dir"),
		RedisURL:        v.GetString("redis_url"),
		ReportsDir:      v.GetString("reports_dir"),
		DBPath:          v.GetString("db_path"),
		PostsPerDay:     v.GetInt("posts_per_day"),
		ActiveHours:     v.GetString("active_hours"),
		BatchesPerDay:   v.GetInt("batches_per_day"),
		Timezone:        v.GetString("timezone"),
		ItemDelayMin:    v.GetDuration("item_delay_min"),
		ItemDelayMax:    v.GetDuration("item_delay_max"),
		BatchDelayMin:   v.GetDuration("batch_delay_min"),
		BatchDelayMax:   v.GetDuration("batch_delay_max"),
		DedupWindow:     v.GetDuration("dedup_window"),
		MinWords:        v.GetInt("min_words"),
		MaxWords:        v.GetInt("max_words"),
		HTTPTimeout:     v.GetDuration("http_timeout"),
		ProviderRPS:     v.GetFloat64("provider_rps"),
		ServeAddr:       v.GetString("serve_addr"),
		LogLevel:        v.GetString("log_level"),
	}
}

// stringList accepts a YAML list or a comma separated environment value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, s := range v.GetStringSlice(key) {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.PrimaryLLM {
	case "claude", "openai", "gemini", "ollama":
	default:
		errs = append(errs, fmt.Errorf("primary_llm %q: want claude, openai, gemini or ollama", c.PrimaryLLM))
	}
	switch c.Publisher {
	case "mdx", "wordpress", "cms":
	default:
		errs = append(errs, fmt.Errorf("publisher %q: want mdx, wordpress or cms", c.Publisher))
	}
	switch c.CacheBackend {
	case "file":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("cache_backend redis requires redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache_backend %q: want file or redis", c.CacheBackend))
	}
	if c.PostsPerDay <= 0 {
		errs = append(errs, fmt.Errorf("posts_per_day must be positive, got %d", c.PostsPerDay))
	}
	if c.MinWords <= 0 || c.MaxWords < c.MinWords {
		errs = append(errs, fmt.Errorf("word bounds %d-%d are invalid", c.MinWords, c.MaxWords))
	}
	if c.ItemDelayMax < c.ItemDelayMin || c.BatchDelayMax < c.BatchDelayMin {
		errs = append(errs, errors.New("delay ranges must have max >= min"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
