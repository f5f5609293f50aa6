// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Review   ReviewConfig   `mapstructure:"review"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Import   ImportConfig   `mapstructure:"import"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	// Driver 取值 mysql 或 sqlite。
	Driver string       `mapstructure:"driver"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SQLiteConfig 存储本地 SQLite 数据库文件路径。
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用 token 黑名单。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时不投递图片描述任务。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	// URLExpireMinutes 是预签名访问链接的有效期。
	URLExpireMinutes int `mapstructure:"url_expire_minutes"`
}

// AdminConfig 描述启动时确保存在的管理员账号，Email 为空则跳过。
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// ReviewConfig 限制单次领取的图片数量与分页大小。
type ReviewConfig struct {
	MaxClaimCount int `mapstructure:"max_claim_count"`
	MaxPageSize   int `mapstructure:"max_page_size"`
}

// SentryConfig 配置错误上报，DSN 为空时不上报。
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// ImportConfig 是导入工具的配置。
type ImportConfig struct {
	// LockPath 是导入进程持有的文件锁，保证同一时刻只有一个导入在写库。
	LockPath string `mapstructure:"lock_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.sqlite.path", "data/review.db")
	v.SetDefault("jwt.access_token_expire_hours", 1)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "image-caption")
	v.SetDefault("minio.bucket_name", "images")
	v.SetDefault("minio.url_expire_minutes", 60)
	v.SetDefault("review.max_claim_count", 500)
	v.SetDefault("review.max_page_size", 100)
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("import.lock_path", "data/import.lock")
}

// Load 从指定路径读取 YAML 配置，环境变量（IMGREVIEW_ 前缀）优先于文件。
// 配置文件同目录下的 .env 会先被载入环境变量，已存在的环境变量不会被覆盖。
func Load(configPath string) (Config, error) {
	var cfg Config
	if err := godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("IMGREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return cfg, fmt.Errorf("jwt.secret 不能为空")
	}
	return cfg, nil
}

// Init 初始化配置加载，将结果写入全局 Conf，失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
