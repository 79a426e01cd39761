package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Wager    WagerConfig    `mapstructure:"wager"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`

	// InternalToken 保护 /api/internal 路由，为空时这些路由全部拒绝访问
	InternalToken string `mapstructure:"internalToken"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// Driver 为 "sqlite" 或 "postgres"
	Driver   string         `mapstructure:"driver"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了SQLite的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig 定义了Postgres的配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// WagerConfig 定义了下注相关的业务参数
type WagerConfig struct {
	CreationCost        int64         `mapstructure:"creationCost"`
	MinStake            int64         `mapstructure:"minStake"`
	DustPolicy          string        `mapstructure:"dustPolicy"`
	MinDeadlineLead     time.Duration `mapstructure:"minDeadlineLead"`
	ProofGracePeriod    time.Duration `mapstructure:"proofGracePeriod"`
	ExpirySweepInterval time.Duration `mapstructure:"expirySweepInterval"`
}

// LedgerConfig 定义了Aura账本相关的业务参数
type LedgerConfig struct {
	InitialGrant       int64         `mapstructure:"initialGrant"`
	DailyBonus         int64         `mapstructure:"dailyBonus"`
	DailyBonusInterval time.Duration `mapstructure:"dailyBonusInterval"`
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// setDefaults 注册所有配置项的默认值，配置文件缺失时依然可以启动
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.internalToken", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "aura.db")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("wager.creationCost", 10)
	v.SetDefault("wager.minStake", 10)
	v.SetDefault("wager.dustPolicy", "redistribute")
	v.SetDefault("wager.minDeadlineLead", time.Hour)
	v.SetDefault("wager.proofGracePeriod", time.Hour)
	v.SetDefault("wager.expirySweepInterval", time.Minute)

	v.SetDefault("ledger.initialGrant", 1000)
	v.SetDefault("ledger.dailyBonus", 50)
	v.SetDefault("ledger.dailyBonusInterval", 24*time.Hour)

	v.SetDefault("log.level", "info")
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件，找不到时使用默认值
func LoadConfig() (*Config, error) {
	// 先加载 .env，让其中的变量参与下面的环境变量覆盖
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 允许通过环境变量覆盖配置，例如 DATABASE_DRIVER=postgres
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}

// Validate 检查配置中无法由默认值兜底的错误组合
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.Postgres.DSN == "" {
			return errors.New("database.driver 为 postgres 时必须提供 database.postgres.dsn")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	switch c.Wager.DustPolicy {
	case "burn", "redistribute":
	default:
		return fmt.Errorf("不支持的零头处理策略: %q", c.Wager.DustPolicy)
	}
	if c.Wager.CreationCost < 0 || c.Wager.MinStake <= 0 {
		return errors.New("wager.creationCost 不能为负且 wager.minStake 必须为正")
	}
	if c.Wager.ExpirySweepInterval <= 0 {
		return errors.New("wager.expirySweepInterval 必须为正")
	}
	return nil
}
