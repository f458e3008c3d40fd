package config

import (
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreSQLite = "sqlite"
)

type Config struct {
	Port          string `yaml:"port" default:"8080" validate:"required"`
	LogLevel      string `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`
	LogProduction bool   `yaml:"log_production"`

	// Cognito user pool
	Region       string `yaml:"region" default:"us-east-1" validate:"required"`
	UserPoolID   string `yaml:"user_pool_id" validate:"required"`
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret"`
	AuthEndpoint string `yaml:"auth_endpoint" validate:"omitempty,url"`

	// AppSync
	GraphQLEndpoint string `yaml:"graphql_endpoint" validate:"required,url"`
	PageSize        int    `yaml:"page_size" default:"50" validate:"min=1,max=1000"`

	JWTSecret     string        `yaml:"jwt_secret" validate:"required,min=16"`
	EncryptionKey string        `yaml:"encryption_key"`
	SessionTTL    time.Duration `yaml:"session_ttl" default:"72h" validate:"min=1m"`

	SessionStore string `yaml:"session_store" default:"memory" validate:"oneof=memory mysql sqlite"`
	DBUser       string `yaml:"db_user"`
	DBPassword   string `yaml:"db_password"`
	DBHost       string `yaml:"db_host" validate:"required_if=SessionStore mysql"`
	DBName       string `yaml:"db_name" validate:"required_if=SessionStore mysql"`
	DBPath       string `yaml:"db_path" default:"noteboard.db"`

	SessionCleanupSpec string  `yaml:"session_cleanup_spec" default:"@every 10m" validate:"required"`
	LoginRate          float64 `yaml:"login_rate" default:"1" validate:"gt=0"`
	LoginBurst         int64   `yaml:"login_burst" default:"5" validate:"min=1"`

	// TrustProxy keys the login limiter on X-Forwarded-For. Enable only
	// behind a proxy that sets the header on every request.
	TrustProxy bool `yaml:"trust_proxy"`
}

// LoadConfig builds the configuration from struct defaults, an optional YAML
// file, an optional .env file and the process environment, in that order.
func LoadConfig(path string) (*Config, error) {
	c := new(Config)

	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file failed")
		}
		if err := yaml.Unmarshal(file, c); err != nil {
			return nil, errors.Wrap(err, "parse config file failed")
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	// fill fields the YAML file left empty
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "re-set default config failed")
	}

	if c.EncryptionKey == "" {
		c.EncryptionKey = c.JWTSecret
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Region, "COGNITO_REGION")
	setString(&c.UserPoolID, "COGNITO_USER_POOL_ID")
	setString(&c.ClientID, "COGNITO_CLIENT_ID")
	setString(&c.ClientSecret, "COGNITO_CLIENT_SECRET")
	setString(&c.AuthEndpoint, "COGNITO_ENDPOINT")
	setString(&c.GraphQLEndpoint, "GRAPHQL_ENDPOINT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.EncryptionKey, "ENCRYPTION_KEY")
	setString(&c.SessionStore, "SESSION_STORE")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.SessionCleanupSpec, "SESSION_CLEANUP_SPEC")

	if v := os.Getenv("LOG_PRODUCTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "LOG_PRODUCTION")
		}
		c.LogProduction = b
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "TRUST_PROXY")
		}
		c.TrustProxy = b
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "PAGE_SIZE")
		}
		c.PageSize = n
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "SESSION_TTL")
		}
		c.SessionTTL = d
	}
	if v := os.Getenv("LOGIN_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "LOGIN_RATE")
		}
		c.LoginRate = f
	}
	if v := os.Getenv("LOGIN_BURST"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "LOGIN_BURST")
		}
		c.LoginBurst = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
