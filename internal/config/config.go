// Package config carga la configuración del servicio desde YAML + env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory (memory: solo dev/testing)
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
		// Seed ed25519 en base64 (32 bytes). Vacío => clave efímera (solo dev).
		SigningSeed string `yaml:"signing_seed"`
	} `yaml:"jwt"`

	Auth struct {
		Verify struct {
			TTL string `yaml:"ttl"`
		} `yaml:"verify"`
		Reset struct {
			TTL string `yaml:"ttl"`
		} `yaml:"reset"`
	} `yaml:"auth"`

	TOTP struct {
		// Label del issuer en la URL otpauth:// (lo que muestra la app TOTP).
		Issuer string `yaml:"issuer"`
		// Ventana de tolerancia en pasos de 30s hacia cada lado.
		WindowSteps int `yaml:"window_steps"`
		// TTL del secreto staged durante el enrolamiento.
		EnrollTTL string `yaml:"enroll_ttl"`
	} `yaml:"totp"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Forgot struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"forgot"`
		MFA struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"mfa"`
	} `yaml:"rate"`

	OAuth struct {
		Google struct {
			// ClientID vacío deja el login externo deshabilitado.
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
		} `yaml:"google"`
	} `yaml:"oauth"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Email struct {
		BaseURL string `yaml:"base_url"`
		// Si no hay SMTP configurado, los mails se loguean en vez de enviarse.
		DebugEchoLinks bool `yaml:"debug_echo_links"`
	} `yaml:"email"`

	GC struct {
		// Intervalo del worker que borra refresh tokens expirados.
		Interval string `yaml:"interval"`
	} `yaml:"gc"`
}

// Load lee el YAML (si existe), aplica defaults y pisa con env vars.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, c.Validate()
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "http://localhost:8080"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.Auth.Verify.TTL == "" {
		c.Auth.Verify.TTL = "24h"
	}
	if c.Auth.Reset.TTL == "" {
		c.Auth.Reset.TTL = "1h"
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = "AuthKit"
	}
	if c.TOTP.WindowSteps == 0 {
		c.TOTP.WindowSteps = 2
	}
	if c.TOTP.EnrollTTL == "" {
		c.TOTP.EnrollTTL = "5m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window == "" {
		c.Rate.Forgot.Window = "10m"
	}
	if c.Rate.MFA.Limit == 0 {
		c.Rate.MFA.Limit = 10
	}
	if c.Rate.MFA.Window == "" {
		c.Rate.MFA.Window = "1m"
	}
	if c.GC.Interval == "" {
		c.GC.Interval = "1h"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_SEED"); ok {
		c.JWT.SigningSeed = v
	}
	if v, ok := getEnvStr("TOTP_ISSUER"); ok {
		c.TOTP.Issuer = v
	}
	if v, ok := getEnvInt("TOTP_WINDOW_STEPS"); ok {
		c.TOTP.WindowSteps = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.OAuth.Google.ClientID = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.OAuth.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("GOOGLE_REDIRECT_URL"); ok {
		c.OAuth.Google.RedirectURL = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("EMAIL_BASE_URL"); ok {
		c.Email.BaseURL = v
	}
}

// Validate chequea combinaciones inválidas que conviene cortar al boot.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.driver=postgres requiere storage.dsn")
		}
	case "memory":
		// ok, sin DSN
	default:
		return fmt.Errorf("config: storage.driver desconocido: %q", c.Storage.Driver)
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.kind=redis requiere cache.redis.addr")
	}
	if c.OAuth.Google.ClientID != "" &&
		(c.OAuth.Google.ClientSecret == "" || c.OAuth.Google.RedirectURL == "") {
		return fmt.Errorf("config: oauth.google requiere client_secret y redirect_url")
	}
	if c.TOTP.WindowSteps < 0 || c.TOTP.WindowSteps > 4 {
		return fmt.Errorf("config: totp.window_steps fuera de rango (0-4)")
	}
	for _, d := range []struct{ name, val string }{
		{"jwt.access_ttl", c.JWT.AccessTTL},
		{"jwt.refresh_ttl", c.JWT.RefreshTTL},
		{"auth.verify.ttl", c.Auth.Verify.TTL},
		{"auth.reset.ttl", c.Auth.Reset.TTL},
		{"totp.enroll_ttl", c.TOTP.EnrollTTL},
		{"gc.interval", c.GC.Interval},
		{"rate.login.window", c.Rate.Login.Window},
		{"rate.forgot.window", c.Rate.Forgot.Window},
		{"rate.mfa.window", c.Rate.MFA.Window},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: %s inválido: %q", d.name, d.val)
		}
	}
	// conn_max_lifetime es opcional; vacío significa sin límite.
	if v := c.Storage.Postgres.ConnMaxLifetime; v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime inválido: %q", v)
		}
	}
	return nil
}

// Dur parsea una duración ya validada. Panic si Validate no corrió antes.
func Dur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic("config: duración inválida: " + s)
	}
	return d
}
