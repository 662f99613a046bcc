package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ErrConfig 缺少必要配置
var ErrConfig = errors.New("config error")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Tron     TronConfig     `mapstructure:"tron"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AuthConfig 身份校验配置
// FirebaseProjectID 非空时校验 Firebase ID Token；否则使用 DevJWTSecret（仅本地开发）
type AuthConfig struct {
	FirebaseProjectID string `mapstructure:"firebase_project_id"`
	DevJWTSecret      string `mapstructure:"dev_jwt_secret"`
}

type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

type CryptoConfig struct {
	KeyEncryptionSecret string `mapstructure:"key_encryption_secret"`
}

type BillingConfig struct {
	PriceUSDT      string `mapstructure:"price_usdt"`
	MonthlyCredits int    `mapstructure:"monthly_credits"`
	PeriodDays     int    `mapstructure:"period_days"`
	FreeDailyLimit int    `mapstructure:"free_daily_limit"`
}

// Price 套餐价格（USDT）
func (b BillingConfig) Price() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(b.PriceUSDT))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: billing.price_usdt %q: %v", ErrConfig, b.PriceUSDT, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: billing.price_usdt must be positive", ErrConfig)
	}
	return price, nil
}

type TronConfig struct {
	FullHost       string `mapstructure:"full_host"`
	APIKey         string `mapstructure:"api_key"`
	USDTContract   string `mapstructure:"usdt_contract"`
	TokenDecimals  int32  `mapstructure:"token_decimals"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	TransferWindow int    `mapstructure:"transfer_window"`
}

type WorkerConfig struct {
	SyncQueue  string `mapstructure:"sync_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
	SweepSpec  string `mapstructure:"sweep_spec"`
	SweepBatch int    `mapstructure:"sweep_batch"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("auth.firebase_project_id", "")
	v.SetDefault("auth.dev_jwt_secret", "")
	v.SetDefault("admin.secret", "")
	v.SetDefault("crypto.key_encryption_secret", "")

	v.SetDefault("billing.price_usdt", "10")
	v.SetDefault("billing.monthly_credits", 1000)
	v.SetDefault("billing.period_days", 30)
	v.SetDefault("billing.free_daily_limit", 5)

	v.SetDefault("tron.full_host", "https://api.trongrid.io")
	v.SetDefault("tron.api_key", "")
	v.SetDefault("tron.usdt_contract", "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj")
	v.SetDefault("tron.token_decimals", 6)
	v.SetDefault("tron.timeout_seconds", 15)
	v.SetDefault("tron.transfer_window", 50)

	v.SetDefault("worker.sync_queue", "payment_sync")
	v.SetDefault("worker.max_workers", 2)
	v.SetDefault("worker.sweep_spec", "0 */5 * * * *")
	v.SetDefault("worker.sweep_batch", 200)

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Admin-Secret"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，例如 BILLING_PRICE_USDT、DATABASE_PASSWORD
	// 只对已注册的 key 生效，新增配置项需在 setDefaults 中登记
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查服务启动所需的配置项
func (c *Config) Validate() error {
	if c.Crypto.KeyEncryptionSecret == "" {
		return fmt.Errorf("%w: crypto.key_encryption_secret is required", ErrConfig)
	}
	if c.Auth.FirebaseProjectID == "" && c.Auth.DevJWTSecret == "" {
		return fmt.Errorf("%w: auth.firebase_project_id or auth.dev_jwt_secret is required", ErrConfig)
	}
	if _, err := c.Billing.Price(); err != nil {
		return err
	}
	if c.Billing.MonthlyCredits <= 0 || c.Billing.PeriodDays <= 0 || c.Billing.FreeDailyLimit < 0 {
		return fmt.Errorf("%w: billing credits/period/limit out of range", ErrConfig)
	}
	if c.Tron.USDTContract == "" || c.Tron.FullHost == "" {
		return fmt.Errorf("%w: tron.full_host and tron.usdt_contract are required", ErrConfig)
	}
	return nil
}
