package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string `mapstructure:"port"`   // サーバーポート（8080）
	GoEnv string `mapstructure:"go_env"` // dev/prod
	FEURL string `mapstructure:"fe_url"` // フロントURL（CORSで使う）

	JWTSecret string        `mapstructure:"jwt_secret"` // JWT署名シークレット
	AccessTTL time.Duration `mapstructure:"access_ttl"` // アクセストークンの有効期限

	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Log     LogConfig     `mapstructure:"log"`

	// 注文時のポイント付与（floor(total/10)）
	LoyaltyEnabled bool `mapstructure:"loyalty_enabled"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"` // postgres / mysql
	URL      string `mapstructure:"url"`    // あれば最優先
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// 空ならキャッシュなしで動く
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProductTTL time.Duration `mapstructure:"product_ttl"`
}

// URIが空なら監査ログはSQL側に保存
type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// 設定キーと環境変数名の対応
var envBindings = map[string]string{
	"port":            "PORT",
	"go_env":          "GO_ENV",
	"fe_url":          "FE_URL",
	"jwt_secret":      "JWT_SECRET",
	"access_ttl":      "ACCESS_TTL",
	"loyalty_enabled": "LOYALTY_ENABLED",

	"db.driver":   "DB_DRIVER",
	"db.url":      "DATABASE_URL",
	"db.host":     "POSTGRES_HOST",
	"db.port":     "POSTGRES_PORT",
	"db.user":     "POSTGRES_USER",
	"db.password": "POSTGRES_PASSWORD",
	"db.name":     "POSTGRES_DB",
	"db.sslmode":  "POSTGRES_SSLMODE",

	"redis.addr":        "REDIS_ADDR",
	"redis.password":    "REDIS_PASSWORD",
	"redis.db":          "REDIS_DB",
	"redis.product_ttl": "REDIS_PRODUCT_TTL",

	"mongodb.uri":        "MONGO_URI",
	"mongodb.database":   "MONGO_DATABASE",
	"mongodb.collection": "MONGO_AUDIT_COLLECTION",

	"log.level":        "LOG_LEVEL",
	"log.encoding":     "LOG_ENCODING",
	"log.output_paths": "LOG_OUTPUT_PATHS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("go_env", "dev")
	v.SetDefault("fe_url", "http://localhost:3000")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("access_ttl", "24h")
	v.SetDefault("loyalty_enabled", true)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.url", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "bakery")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.product_ttl", "5m")

	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "bakery")
	v.SetDefault("mongodb.collection", "audit_logs")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Loadは .env → 環境変数 → (あれば)YAMLファイル の順で設定を読む
func Load(configPath string) (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Port = normalizePort(cfg.Port)
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.DB.Driver {
	case "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or mysql: %q", cfg.DB.Driver)
	}
	if cfg.AccessTTL <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TTL must be positive")
	}

	return cfg, nil
}

// Addrはecho.Startに渡すアドレス
func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

// DSNはドライバごとの接続文字列
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	// clientFoundRows: 値が同じでも一致行をRowsAffectedに数える
	if c.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			c.User, c.Password, c.Host, c.Port, c.Name)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	return strings.TrimPrefix(p, ":")
}
