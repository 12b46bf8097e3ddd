// internal/tasks/simulate-scenario/config.go
package simulatescenario

import (
	"time"

	"healthsim-pipeline/internal/common/config"
)

type Config struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
	CacheTTL    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Model:       "healthcare-llm",
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
	}
}

// FromAppConfig merges the backend section with this task's overrides.
func FromAppConfig(cfg *config.Config) *Config {
	out := LoadConfig()
	if cfg.Backend.Model != "" {
		out.Model = cfg.Backend.Model
	}

	task, ok := cfg.Tasks[TaskType]
	if !ok {
		return out
	}
	if task.Temperature > 0 {
		out.Temperature = task.Temperature
	}
	if task.MaxTokens > 0 {
		out.MaxTokens = task.MaxTokens
	}
	if task.Timeout > 0 {
		out.Timeout = time.Duration(task.Timeout) * time.Millisecond
	}
	if task.CacheTTL > 0 {
		out.CacheTTL = time.Duration(task.CacheTTL) * time.Millisecond
	}
	return out
}
