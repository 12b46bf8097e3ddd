// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig             `mapstructure:"app"`
	Server   ServerConfig          `mapstructure:"server"`
	Backend  BackendConfig         `mapstructure:"backend"`
	Pipeline PipelineConfig        `mapstructure:"pipeline"`
	Tasks    map[string]TaskConfig `mapstructure:"tasks"`
	Cache    CacheConfig           `mapstructure:"cache"`
	Registry RegistryConfig        `mapstructure:"registry"`
	Logging  LoggingConfig         `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// BackendConfig holds settings for the generative text backend.
type BackendConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Model        string `mapstructure:"model"`
	Timeout      int    `mapstructure:"timeout"`       // milliseconds, per attempt
	ProbeEnabled bool   `mapstructure:"probe_enabled"` // preflight probe before each send
	ProbeTimeout int    `mapstructure:"probe_timeout"` // milliseconds
}

// PipelineConfig holds the retry and deadline settings shared by all tasks.
type PipelineConfig struct {
	MaxAttempts          int `mapstructure:"max_attempts"`
	MaxExtractionRetries int `mapstructure:"max_extraction_retries"`
	BackoffBase          int `mapstructure:"backoff_base"`     // milliseconds
	BackoffMax           int `mapstructure:"backoff_max"`      // milliseconds
	RequestDeadline      int `mapstructure:"request_deadline"` // milliseconds, whole request
}

// TaskConfig holds the core settings applicable to every task.
type TaskConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	MaxAttempts int     `mapstructure:"max_attempts"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds, per attempt override
	CacheTTL    int     `mapstructure:"cache_ttl"` // milliseconds, 0 disables caching
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// CacheConfig holds settings for the optional Redis result cache.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RegistryConfig points at the external field-spec registry file.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
