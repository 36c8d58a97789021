package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelStages is the number of sequential model calls one analysis makes.
const ModelStages = 2

// maxStageMargin caps the time kept back from the write deadline for the
// rule-based fallback and the response write.
const maxStageMargin = 5 * time.Second

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
		StaticDir    string        `yaml:"staticDir"`
		Version      string        `yaml:"version"`
	} `yaml:"server"`

	AI struct {
		APIKey      string        `yaml:"apiKey"`
		BaseURL     string        `yaml:"baseURL"`
		Model       string        `yaml:"model"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxAttempts int           `yaml:"maxAttempts"`
	} `yaml:"ai"`

	RateLimit struct {
		Requests   int           `yaml:"requests"`
		Window     time.Duration `yaml:"window"`
		AIRequests int           `yaml:"aiRequests"`
		AIWindow   time.Duration `yaml:"aiWindow"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Tickets struct {
		RedisAddr     string `yaml:"redisAddr"`
		RedisPassword string `yaml:"redisPassword"`
		RedisDB       int    `yaml:"redisDB"`
	} `yaml:"tickets"`

	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.Server.Port = 3000
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 70 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.StaticDir = "web"
	c.Server.Version = "1.0.0"
	c.AI.Model = "gpt-4o"
	c.AI.Timeout = 30 * time.Second
	c.AI.MaxAttempts = 2
	c.RateLimit.Requests = 100
	c.RateLimit.Window = 15 * time.Minute
	c.RateLimit.AIRequests = 10
	c.RateLimit.AIWindow = time.Minute
	c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	c.Log.Level = "info"
	return &c
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("OPENAI_API_KEY"); ok {
		c.AI.APIKey = v
	}
	if v, ok := lookup("OPENAI_MODEL"); ok && v != "" {
		c.AI.Model = v
	}
	if v, ok := lookup("OPENAI_BASE_URL"); ok && v != "" {
		c.AI.BaseURL = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("TICKETS_REDIS_ADDR"); ok {
		c.Tickets.RedisAddr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("STATIC_DIR"); ok && v != "" {
		c.Server.StaticDir = v
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.AI.MaxAttempts < 1 || c.AI.MaxAttempts > 5 {
		errs = append(errs, fmt.Errorf("ai.maxAttempts %d must be between 1 and 5", c.AI.MaxAttempts))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rateLimit.requests and rateLimit.window must be positive"))
	}
	if c.RateLimit.AIRequests <= 0 || c.RateLimit.AIWindow <= 0 {
		errs = append(errs, errors.New("rateLimit.aiRequests and rateLimit.aiWindow must be positive"))
	}
	if c.Server.WriteTimeout > 0 && c.AdviceBudget() < ModelStages*c.AI.Timeout {
		errs = append(errs, fmt.Errorf("server.writeTimeout %s must exceed %d x ai.timeout %s plus a margin",
			c.Server.WriteTimeout, ModelStages, c.AI.Timeout))
	}
	return errors.Join(errs...)
}

// AdviceBudget is the time one analysis may spend on model calls before the
// rule fallback must answer. It ends a margin before the write deadline.
func (c *Config) AdviceBudget() time.Duration {
	if c.Server.WriteTimeout <= 0 {
		return ModelStages * c.AI.Timeout
	}
	margin := min(c.Server.WriteTimeout/5, maxStageMargin)
	return c.Server.WriteTimeout - margin
}

// AIEnabled reports whether a language model key is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
