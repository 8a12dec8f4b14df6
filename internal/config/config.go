package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	RunConfig     *RunConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	// TraceOutput is "none", "stdout" or a file path.
	TraceOutput string `envconfig:"TRACE_OUTPUT" default:"none"`
}

type AIConfig struct {
	BaseURL     string  `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey      string  `envconfig:"OPENAI_API_KEY" required:"true"`
	Model       string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	Temperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.1"`
	// Timeout of a single HTTP request, in seconds.
	Timeout      int `envconfig:"LLM_TIMEOUT" default:"120"`
	MaxAttempts  int `envconfig:"LLM_MAX_ATTEMPTS" default:"3"`
	MaxBodyChars int `envconfig:"LLM_MAX_BODY_CHARS" default:"40000"`
	MaxInventory int `envconfig:"LLM_MAX_INVENTORY" default:"120"`
}

type BrowserConfig struct {
	Headless          bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	Install           bool   `envconfig:"BROWSER_INSTALL" default:"false"`
	SlowMo            int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout           int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir       string `envconfig:"BROWSER_USER_DATA_DIR" default:""`
	Locale            string `envconfig:"BROWSER_LOCALE" default:"ru-RU"`
	ViewportWidth     int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight    int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"720"`
	IgnoreHTTPSErrors bool   `envconfig:"BROWSER_IGNORE_HTTPS_ERRORS" default:"false"`
}

type RunConfig struct {
	// MaxReplans caps rejections per step; 0 leaves the replan loop unbounded.
	MaxReplans  int  `envconfig:"RUN_MAX_REPLANS" default:"0"`
	AutoApprove bool `envconfig:"REVIEW_AUTO_APPROVE" default:"false"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
