package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/seatpass/internal/logger"
)

const (
	defaultListenAddr    = "localhost:8000"
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultFrontendURL   = "http://localhost:3000"
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultSMTPPort      = 587
	defaultResetCooldown = time.Minute
	defaultSweepInterval = 10 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secrets to sign access and refresh tokens. Must differ
	AccessSecret  string
	RefreshSecret string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// development or production; affects log format and cookie attributes
	Environment string

	// Password reset links point here
	FrontendURL string

	// Reset emails are only logged if SMTP host not set
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	// Reset requests are not throttled if redis address not set
	RedisAddr     string
	RedisPassword string
	ResetCooldown time.Duration

	// Zero disables housekeeping
	SweepInterval time.Duration

	AllowAdminSignup bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		ListenAddr:    defaultListenAddr,
		Environment:   defaultEnvironment,
		FrontendURL:   defaultFrontendURL,
		AccessTTL:     defaultAccessTTL,
		RefreshTTL:    defaultRefreshTTL,
		SMTPPort:      defaultSMTPPort,
		ResetCooldown: defaultResetCooldown,
		SweepInterval: defaultSweepInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"JWT_ACCESS_SECRET":      setString(&c.AccessSecret),
		"JWT_REFRESH_SECRET":     setString(&c.RefreshSecret),
		"ACCESS_TOKEN_TTL":       setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_TTL":      setDuration(&c.RefreshTTL),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"FRONTEND_URL":           setString(&c.FrontendURL),
		"SMTP_HOST":              setString(&c.SMTPHost),
		"SMTP_PORT":              setInt(&c.SMTPPort),
		"SMTP_USER":              setString(&c.SMTPUser),
		"SMTP_PASS":              setString(&c.SMTPPass),
		"EMAIL_FROM":             setString(&c.EmailFrom),
		"REDIS_ADDR":             setString(&c.RedisAddr),
		"REDIS_PASSWORD":         setString(&c.RedisPassword),
		"RESET_REQUEST_COOLDOWN": setDuration(&c.ResetCooldown),
		"SWEEP_INTERVAL":         setDuration(&c.SweepInterval),
		"ALLOW_ADMIN_SIGNUP":     setBool(&c.AllowAdminSignup),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("bad %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("seatpass", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "Access token signing secret")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "Refresh token signing secret")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "Refresh token lifetime")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.StringVar(&c.FrontendURL, "frontend-url", c.FrontendURL, "Frontend base URL for reset links")
	fs.StringVar(&c.SMTPHost, "smtp-host", c.SMTPHost, "SMTP server host")
	fs.IntVar(&c.SMTPPort, "smtp-port", c.SMTPPort, "SMTP server port")
	fs.StringVar(&c.SMTPUser, "smtp-user", c.SMTPUser, "SMTP username")
	fs.StringVar(&c.SMTPPass, "smtp-pass", c.SMTPPass, "SMTP password")
	fs.StringVar(&c.EmailFrom, "email-from", c.EmailFrom, "Sender address of emails")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for reset throttling")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.DurationVar(&c.ResetCooldown, "reset-cooldown", c.ResetCooldown, "Minimal interval between reset emails to same address")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, "Housekeeping interval, 0 disables")
	fs.BoolVar(&c.AllowAdminSignup, "allow-admin-signup", c.AllowAdminSignup, "Allow registering with admin role")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database uri is required"))
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		errs = append(errs, errors.New("access and refresh secrets are required"))
	}
	if c.Environment == logger.EnvProduction && c.SMTPHost == "" {
		errs = append(errs, errors.New("smtp host is required in production"))
	}
	if c.SMTPHost != "" && c.EmailFrom == "" {
		errs = append(errs, errors.New("email from is required when smtp configured"))
	}
	return errors.Join(errs...)
}
