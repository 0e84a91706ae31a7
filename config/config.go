package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at start-up.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	WebAuthn WebAuthnConfig `mapstructure:"webauthn"`
	Session  SessionConfig  `mapstructure:"session"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Mail     MailConfig     `mapstructure:"mail"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Kiosk    KioskConfig    `mapstructure:"kiosk"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port     int        `mapstructure:"port"`
	BaseURL  string     `mapstructure:"base_url"`
	CORS     CORSConfig `mapstructure:"cors"`
	SeedDemo bool       `mapstructure:"seed_demo"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WebAuthnConfig struct {
	RPID        string   `mapstructure:"rp_id"`
	RPOrigins   []string `mapstructure:"rp_origins"`
	DisplayName string   `mapstructure:"display_name"`
}

type SessionConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	CeremonyTTL      time.Duration `mapstructure:"ceremony_ttl"`
	LastSeenThrottle time.Duration `mapstructure:"last_seen_throttle"`
}

type AdminConfig struct {
	Emails         []string `mapstructure:"emails"`
	BootstrapEmail string   `mapstructure:"bootstrap_email"`
}

type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AppName  string `mapstructure:"app_name"`
}

type CheckoutConfig struct {
	LoanPeriod      time.Duration `mapstructure:"loan_period"`
	DisplayTimezone string        `mapstructure:"display_timezone"`
}

// Location resolves DisplayTimezone, falling back to UTC.
func (c CheckoutConfig) Location() *time.Location {
	if c.DisplayTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// KioskConfig controls the unauthenticated scan-and-take flow.
type KioskConfig struct {
	AutoRegister           bool          `mapstructure:"auto_register"`
	AutoRegisterDepartment string        `mapstructure:"auto_register_department"`
	CheckUserLimit         int           `mapstructure:"check_user_limit"`
	CheckUserWindow        time.Duration `mapstructure:"check_user_window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadEnv loads a local .env file when one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using process environment")
	}
}

// Load reads configuration. Environment variables (prefix TOOLS_) win over
// the config file, which wins over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.base_url", "http://localhost:5001")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.seed_demo", false)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "tool_tracker")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("webauthn.rp_id", "localhost")
	v.SetDefault("webauthn.rp_origins", []string{"http://localhost:5173"})
	v.SetDefault("webauthn.display_name", "Tool Tracker Admin")

	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.ceremony_ttl", "10m")
	v.SetDefault("session.last_seen_throttle", "5m")

	// keys without a default are invisible to Unmarshal, env overrides included
	v.SetDefault("admin.emails", []string{})
	v.SetDefault("admin.bootstrap_email", "")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.app_name", "Tool Tracker")

	v.SetDefault("checkout.loan_period", "168h")
	v.SetDefault("checkout.display_timezone", "Europe/Moscow")

	v.SetDefault("kiosk.auto_register", true)
	v.SetDefault("kiosk.auto_register_department", "auto-registered")
	v.SetDefault("kiosk.check_user_limit", 30)
	v.SetDefault("kiosk.check_user_window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c *Config) normalize() {
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	admins := make([]string, 0, len(c.Admin.Emails))
	for _, e := range c.Admin.Emails {
		if t := strings.ToLower(strings.TrimSpace(e)); t != "" {
			admins = append(admins, t)
		}
	}
	c.Admin.Emails = admins
	c.Admin.BootstrapEmail = strings.ToLower(strings.TrimSpace(c.Admin.BootstrapEmail))
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be within 1-65535")
	}
	if c.Checkout.LoanPeriod <= 0 {
		return fmt.Errorf("invalid config: checkout.loan_period must be positive")
	}
	if c.WebAuthn.RPID == "" {
		return fmt.Errorf("invalid config: webauthn.rp_id is required")
	}
	if len(c.WebAuthn.RPOrigins) == 0 {
		return fmt.Errorf("invalid config: webauthn.rp_origins is required")
	}
	return nil
}

// IsAdminEmail reports whether email is listed in admin.emails.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.Admin.Emails {
		if a == email {
			return true
		}
	}
	return false
}
