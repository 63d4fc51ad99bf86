package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env         string // local / production
	LogLevel    string
	ServerPort  string
	Timezone    string // used to decide what "today" is for due dates
	FrontendURL string // base of the e-mail verification link
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
	MaxOpenConn int
	MaxIdleConn int
}

type RedisConfig struct {
	Addr     string // empty disables Redis
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type MailConfig struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
}

type RateLimitConfig struct {
	LoginAttempts int
	LoginWindow   time.Duration
}

var defaults = map[string]any{
	"app_env":          "local",
	"log_level":        "info",
	"server_port":      "8080",
	"app_timezone":     "UTC",
	"app_frontend_url": "http://localhost:5173",

	"db_host":          "localhost",
	"db_port":          "5432",
	"db_user":          "taskmanager",
	"db_password":      "taskmanager",
	"db_name":          "taskmanager",
	"db_sslmode":       "disable",
	"db_auto_migrate":  true,
	"db_max_open_conn": 20,
	"db_max_idle_conn": 5,

	"redis_addr":     "",
	"redis_password": "",
	"redis_db":       0,

	"jwt_secret": "supersecretkey",
	"jwt_ttl":    "24h",

	"smtp_host": "",
	"smtp_port": 587,
	"smtp_user": "",
	"smtp_pass": "",
	"smtp_from": "",

	"login_rate_limit":  5,
	"login_rate_window": "1m",
}

// Load reads .env (if present), an optional config file named by CONFIG_FILE
// and the process environment, in increasing priority.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	jwtTTL, err := time.ParseDuration(v.GetString("jwt_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	loginWindow, err := time.ParseDuration(v.GetString("login_rate_window"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_WINDOW: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:         v.GetString("app_env"),
			LogLevel:    v.GetString("log_level"),
			ServerPort:  v.GetString("server_port"),
			Timezone:    v.GetString("app_timezone"),
			FrontendURL: strings.TrimRight(v.GetString("app_frontend_url"), "/"),
		},
		DB: DBConfig{
			Host:        v.GetString("db_host"),
			Port:        v.GetString("db_port"),
			User:        v.GetString("db_user"),
			Password:    v.GetString("db_password"),
			Name:        v.GetString("db_name"),
			SSLMode:     v.GetString("db_sslmode"),
			AutoMigrate: v.GetBool("db_auto_migrate"),
			MaxOpenConn: v.GetInt("db_max_open_conn"),
			MaxIdleConn: v.GetInt("db_max_idle_conn"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
			TTL:    jwtTTL,
		},
		Mail: MailConfig{
			SMTPHost: v.GetString("smtp_host"),
			SMTPPort: v.GetInt("smtp_port"),
			SMTPUser: v.GetString("smtp_user"),
			SMTPPass: v.GetString("smtp_pass"),
			From:     v.GetString("smtp_from"),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts: v.GetInt("login_rate_limit"),
			LoginWindow:   loginWindow,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.JWT.Secret == defaults["jwt_secret"] {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Location returns the configured time zone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds the postgres connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL builds the postgres URL used by the migrator.
func (c *DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

func (c *MailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.From != ""
}
