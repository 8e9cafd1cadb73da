package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Jobs    JobsConfig
}

type ServerConfig struct {
	Port int
}

type ScraperConfig struct {
	Headless        bool
	TimeoutSeconds  int
	MaxWorkers      int
	ItemDelayMillis int
	RetryValidation bool
}

type JobsConfig struct {
	RetentionSeconds    int
	ReapIntervalSeconds int
	MaxConcurrent       int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Scraper: ScraperConfig{
			Headless:        getEnvBool("SCRAPER_HEADLESS", true),
			TimeoutSeconds:  getEnvInt("SCRAPER_TIMEOUT", 30),
			MaxWorkers:      getEnvInt("SCRAPER_MAX_WORKERS", 5),
			ItemDelayMillis: getEnvInt("SCRAPER_ITEM_DELAY_MS", 0),
			RetryValidation: getEnvBool("SCRAPER_RETRY_VALIDATION", false),
		},
		Jobs: JobsConfig{
			RetentionSeconds:    getEnvInt("JOB_RETENTION_SECONDS", 3600),
			ReapIntervalSeconds: getEnvInt("JOB_REAP_INTERVAL_SECONDS", 600),
			MaxConcurrent:       getEnvInt("JOB_MAX_CONCURRENT", 4),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Scraper.MaxWorkers < 1 || c.Scraper.MaxWorkers > 500 {
		return fmt.Errorf("max workers must be between 1 and 500, got %d", c.Scraper.MaxWorkers)
	}

	if c.Scraper.TimeoutSeconds < 1 {
		return fmt.Errorf("scraper timeout must be at least 1 second")
	}

	if c.Jobs.RetentionSeconds < 1 {
		return fmt.Errorf("job retention must be at least 1 second")
	}

	if c.Jobs.MaxConcurrent < 1 {
		return fmt.Errorf("at least 1 concurrent job is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
