// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 合计金额校验策略
const (
	TotalPolicyVerify = "verify"
	TotalPolicyTrust  = "trust"
)

// Config 服务配置
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string          `mapstructure:"environment"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Inventory   InventoryConfig `mapstructure:"inventory"`
	Advisor     AdvisorConfig   `mapstructure:"advisor"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读写超时（秒）
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// 允许跨域的来源
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Addr 返回监听地址
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql, postgres, sqlite
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogEnabled      bool   `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
	// 启动时自动迁移表结构
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置，未启用时建议缓存与限流关闭
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// KafkaConfig Kafka 配置，brokers 为空时不启动 outbox 转发
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// 轮询 outbox 的间隔（毫秒）
	RelayInterval int `mapstructure:"relay_interval"`
	RelayBatch    int `mapstructure:"relay_batch"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	// 令牌有效期（分钟）
	TokenTTL int `mapstructure:"token_ttl"`
}

// InventoryConfig 销售与库存事务配置
type InventoryConfig struct {
	DefaultMinStockLevel int `mapstructure:"default_min_stock_level"`
	// 单次事务超时（毫秒）
	TxTimeout int `mapstructure:"tx_timeout"`
	// 瞬时错误的最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 调用方合计金额的处理策略：verify 或 trust
	TotalPolicy  string   `mapstructure:"total_policy"`
	PaymentModes []string `mapstructure:"payment_modes"`
}

// TxTimeoutDuration 返回事务超时
func (i InventoryConfig) TxTimeoutDuration() time.Duration {
	return time.Duration(i.TxTimeout) * time.Millisecond
}

// AdvisorConfig 定价建议（LLM）配置
type AdvisorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	// 请求超时（毫秒）
	Timeout int `mapstructure:"timeout"`
	// 建议缓存时间（秒），0 表示不缓存
	CacheTTL int `mapstructure:"cache_ttl"`
	// 每分钟允许的请求数
	RatePerMinute int `mapstructure:"rate_per_minute"`
	// 熔断：连续失败次数与打开时长（秒）
	BreakerFailures int `mapstructure:"breaker_failures"`
	BreakerOpen     int `mapstructure:"breaker_open"`
}

// Load 从 TOML 文件加载配置，文件必须存在
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

// LoadWithDefaults 加载配置，文件不存在时只使用默认值与环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		_ = v.ReadInConfig()
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch c.Inventory.TotalPolicy {
	case TotalPolicyVerify, TotalPolicyTrust:
	default:
		return fmt.Errorf("invalid inventory.total_policy: %q", c.Inventory.TotalPolicy)
	}
	if c.Inventory.TxTimeout <= 0 {
		return fmt.Errorf("inventory.tx_timeout must be positive")
	}
	if c.Inventory.MaxRetries < 0 {
		return fmt.Errorf("inventory.max_retries must not be negative")
	}
	if c.Inventory.DefaultMinStockLevel < 0 {
		return fmt.Errorf("inventory.default_min_stock_level must not be negative")
	}
	if len(c.Inventory.PaymentModes) == 0 {
		return fmt.Errorf("inventory.payment_modes must not be empty")
	}
	if c.Environment == "prod" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in prod")
	}
	if c.Advisor.Enabled && c.Advisor.APIKey == "" {
		return fmt.Errorf("advisor.api_key is required when advisor is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "smartstock")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("http.allow_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "smartstock.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 200)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "smartstock.inventory.events")
	v.SetDefault("kafka.relay_interval", 1000)
	v.SetDefault("kafka.relay_batch", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/smartstock.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "smartstock")
	v.SetDefault("auth.token_ttl", 720)

	v.SetDefault("inventory.default_min_stock_level", 5)
	v.SetDefault("inventory.tx_timeout", 5000)
	v.SetDefault("inventory.max_retries", 3)
	v.SetDefault("inventory.total_policy", TotalPolicyVerify)
	v.SetDefault("inventory.payment_modes", []string{"cash", "card", "upi", "wallet"})

	v.SetDefault("advisor.enabled", false)
	v.SetDefault("advisor.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.model", "llama-3.3-70b-versatile")
	v.SetDefault("advisor.timeout", 15000)
	v.SetDefault("advisor.cache_ttl", 600)
	v.SetDefault("advisor.rate_per_minute", 20)
	v.SetDefault("advisor.breaker_failures", 3)
	v.SetDefault("advisor.breaker_open", 30)
}
