package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de polyledger.
type Config struct {
	Wallet  string        `yaml:"wallet"`
	Fetch   FetchConfig   `yaml:"fetch"`
	API     APIConfig     `yaml:"api"`
	Join    JoinConfig    `yaml:"join"`
	CLV     CLVConfig     `yaml:"clv"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// FetchConfig controla la paginación, el pacing y los límites de los fetchers.
type FetchConfig struct {
	Limit            int `yaml:"limit"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
	SleepMS          int `yaml:"sleep_ms"`
	MaxPages         int `yaml:"max_pages"`
	MaxRecords       int `yaml:"max_records"`
	RateLimitBaseMS  int `yaml:"rate_limit_base_ms"`
	RateLimitMaxMS   int `yaml:"rate_limit_max_ms"`
	MaxRetries       int `yaml:"max_retries"`
	Workers          int `yaml:"workers"`
	RecordsPerWorker int `yaml:"records_per_worker"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	DataBase    string `yaml:"data_base"`
	GammaBase   string `yaml:"gamma_base"`
	SubgraphURL string `yaml:"subgraph_url"`
}

// JoinConfig controla el join de metadata de mercados.
type JoinConfig struct {
	BatchSize       int `yaml:"batch_size"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

// CLVConfig controla la reconciliación contra la línea de cierre.
type CLVConfig struct {
	ClosingColumn string `yaml:"closing_column"` // columna usada como precio de cierre
	MarketBatch   int    `yaml:"market_batch"`   // condition ids por request de /trades
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // si no está vacío, además rota logs a este archivo
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Si path está vacío o el archivo no existe, arranca de los defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza configuraciones que los fetchers no pueden ejecutar.
func (c *Config) Validate() error {
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("config.Validate: fetch.workers must be >= 1, got %d", c.Fetch.Workers)
	}
	if c.Fetch.RecordsPerWorker < 1 {
		return fmt.Errorf("config.Validate: fetch.records_per_worker must be >= 1, got %d", c.Fetch.RecordsPerWorker)
	}
	if c.Join.BatchSize < 1 {
		return fmt.Errorf("config.Validate: join.batch_size must be >= 1, got %d", c.Join.BatchSize)
	}
	return nil
}

// Timeout devuelve el timeout por request HTTP.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// Sleep devuelve la pausa fija entre páginas del fetcher sin límite.
func (c *Config) Sleep() time.Duration {
	return time.Duration(c.Fetch.SleepMS) * time.Millisecond
}

// RateLimitBase devuelve el backoff base ante un 429.
func (c *Config) RateLimitBase() time.Duration {
	return time.Duration(c.Fetch.RateLimitBaseMS) * time.Millisecond
}

// RateLimitMax devuelve el techo del backoff ante un 429.
func (c *Config) RateLimitMax() time.Duration {
	return time.Duration(c.Fetch.RateLimitMaxMS) * time.Millisecond
}

// CacheTTL devuelve cuánto vive la metadata de un slug en caché.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Join.CacheTTLMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("POLYLEDGER_WALLET"); v != "" {
		cfg.Wallet = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Solo rellena ceros: un valor negativo explícito llega intacto a Validate.
func setDefaults(cfg *Config) {
	if cfg.Fetch.Limit <= 0 {
		cfg.Fetch.Limit = 500
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 30
	}
	if cfg.Fetch.SleepMS <= 0 {
		cfg.Fetch.SleepMS = 150
	}
	if cfg.Fetch.MaxPages <= 0 {
		cfg.Fetch.MaxPages = 1000
	}
	if cfg.Fetch.MaxRecords <= 0 {
		cfg.Fetch.MaxRecords = 100_000
	}
	if cfg.Fetch.RateLimitBaseMS <= 0 {
		cfg.Fetch.RateLimitBaseMS = 2000
	}
	if cfg.Fetch.RateLimitMaxMS <= 0 {
		cfg.Fetch.RateLimitMaxMS = 60_000
	}
	if cfg.Fetch.MaxRetries <= 0 {
		cfg.Fetch.MaxRetries = 5
	}
	if cfg.Fetch.Workers == 0 {
		cfg.Fetch.Workers = 20
	}
	if cfg.Fetch.RecordsPerWorker == 0 {
		cfg.Fetch.RecordsPerWorker = 250
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.SubgraphURL == "" {
		cfg.API.SubgraphURL = "https://api.goldsky.com/api/public/project_cl6mb8i9h0003e201j6li0diw/subgraphs/positions-subgraph/0.0.7/gn"
	}
	if cfg.Join.BatchSize == 0 {
		cfg.Join.BatchSize = 100
	}
	if cfg.Join.CacheTTLMinutes <= 0 {
		cfg.Join.CacheTTLMinutes = 30
	}
	if cfg.CLV.ClosingColumn == "" {
		cfg.CLV.ClosingColumn = "match_start_price"
	}
	if cfg.CLV.MarketBatch <= 0 {
		cfg.CLV.MarketBatch = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}
}
