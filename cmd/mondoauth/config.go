package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/mondoauth/internal/logger"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultLoginURL        = "https://auth.getmondo.co.uk/"
	defaultAPIURL          = "https://api.getmondo.co.uk"
	defaultRedirectURL     = "http://localhost:8000/callback"
	defaultStore           = StoreMemory
	defaultStageTimeout    = 30 * time.Second
	defaultRefreshFailure  = "keep"
	defaultRefreshMode     = "skip"
	defaultRefreshInterval = time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the callback server will be run
	ListenAddr string `validate:"required"`

	// Environment
	Environment string

	// OAuth client registration
	ClientID     string `validate:"required"`
	ClientSecret string

	// Provider login page, API base address and where provider sends user back
	LoginURL    string `validate:"required,url"`
	APIURL      string `validate:"required,url"`
	RedirectURL string `validate:"required,url"`

	// Push registration service address and the webhook remote service calls
	PushURL    string `validate:"required,url"`
	WebhookURL string `validate:"required,url"`

	// Device token is requested from push service for SenderID unless set explicitly
	SenderID    string `validate:"required_without=DeviceToken"`
	DeviceToken string

	// Credential store kind and its address (file path, database or redis url)
	Store    string `validate:"oneof=memory file postgres redis"`
	StoreDSN string `validate:"required_unless=Store memory"`

	// Secret key
	// If set, credentials are encrypted before they get to the store
	SecretKey string

	// Timeout for every remote call
	StageTimeout time.Duration `validate:"gt=0s"`

	// Refresh guard policy and concurrent refresh handling
	RefreshFailure string `validate:"oneof=keep release"`
	RefreshMode    string `validate:"oneof=skip shared"`

	// How often background refresher checks token. Zero disables it
	RefreshInterval time.Duration `validate:"gte=0s"`

	// Register webhook right after login
	RegisterOnLogin bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		LoginURL:        defaultLoginURL,
		APIURL:          defaultAPIURL,
		RedirectURL:     defaultRedirectURL,
		Store:           defaultStore,
		StageTimeout:    defaultStageTimeout,
		RefreshFailure:  defaultRefreshFailure,
		RefreshMode:     defaultRefreshMode,
		RefreshInterval: defaultRefreshInterval,
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
		"LISTEN_ADDRESS":    setString(&c.ListenAddr),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"ENVIRONMENT":       setString(&c.Environment),
		"CLIENT_ID":         setString(&c.ClientID),
		"CLIENT_SECRET":     setString(&c.ClientSecret),
		"LOGIN_URL":         setString(&c.LoginURL),
		"API_URL":           setString(&c.APIURL),
		"REDIRECT_URL":      setString(&c.RedirectURL),
		"PUSH_URL":          setString(&c.PushURL),
		"WEBHOOK_URL":       setString(&c.WebhookURL),
		"SENDER_ID":         setString(&c.SenderID),
		"DEVICE_TOKEN":      setString(&c.DeviceToken),
		"STORE":             setString(&c.Store),
		"STORE_DSN":         setString(&c.StoreDSN),
		"SECRET_KEY":        setString(&c.SecretKey),
		"STAGE_TIMEOUT":     setDuration(&c.StageTimeout),
		"REFRESH_FAILURE":   setString(&c.RefreshFailure),
		"REFRESH_MODE":      setString(&c.RefreshMode),
		"REFRESH_INTERVAL":  setDuration(&c.RefreshInterval),
		"REGISTER_ON_LOGIN": setBool(&c.RegisterOnLogin),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("mondoauth", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "OAuth client id")
	fs.StringVar(&c.ClientSecret, "client-secret", c.ClientSecret, "OAuth client secret")
	fs.StringVar(&c.LoginURL, "login-url", c.LoginURL, "Provider login page")
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "API base address")
	fs.StringVar(&c.RedirectURL, "redirect-url", c.RedirectURL, "Where provider sends user back with code")
	fs.StringVar(&c.PushURL, "push-url", c.PushURL, "Push registration service address")
	fs.StringVar(&c.WebhookURL, "webhook-url", c.WebhookURL, "Webhook callback address")
	fs.StringVar(&c.SenderID, "sender-id", c.SenderID, "Push sender id to request device token for")
	fs.StringVar(&c.DeviceToken, "device-token", c.DeviceToken, "Device token, skips request to push service")
	fs.StringVarP(&c.Store, "store", "s", c.Store, "Credential store (memory, file, postgres, redis)")
	fs.StringVarP(&c.StoreDSN, "store-dsn", "d", c.StoreDSN, "Credential store file path or connection string")
	fs.StringVar(&c.SecretKey, "secret-key", c.SecretKey, "Key to encrypt stored credentials")
	fs.DurationVar(&c.StageTimeout, "stage-timeout", c.StageTimeout, "Timeout for every remote call")
	fs.StringVar(&c.RefreshFailure, "refresh-failure", c.RefreshFailure, "Refresh guard after failure (keep, release)")
	fs.StringVar(&c.RefreshMode, "refresh-mode", c.RefreshMode, "Concurrent refresh handling (skip, shared)")
	fs.DurationVar(&c.RefreshInterval, "refresh-interval", c.RefreshInterval, "Background refresh check interval, 0 disables")
	fs.BoolVar(&c.RegisterOnLogin, "register-on-login", c.RegisterOnLogin, "Register webhook after login")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
