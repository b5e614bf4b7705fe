// Package config handles input from etc/main.toml, .env files and the environment.
package config

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable override, e.g. USERS_PERMISSIONS_TOKEN_ACCESSSECRET.
	EnvPrefix = "USERS_PERMISSIONS"

	// EnvJSONConfig holds a JSON document merged over the file configuration.
	EnvJSONConfig = EnvPrefix + "_CONFIG_JSON"

	configFileName = "main.toml"
	dotEnvFileName = ".env"

	defaultShutDownTime = 5
)

// ReadConfig from config file.
// The directory is searched for main.toml and an optional .env file.
func ReadConfig(path string) (Config, error) {
	var (
		c   Config
		err error
	)

	if path == "" {
		path = "./etc/"
	}

	// a missing .env file is fine, it only feeds the environment
	if err = godotenv.Load(filepath.Join(path, dotEnvFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Wrap(err, "failed to read .env file")
	}

	v := newViper()
	v.SetConfigFile(filepath.Join(path, configFileName))

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	if jsonConfig := os.Getenv(EnvJSONConfig); jsonConfig != "" {
		c, err = decodeAndMergeConfig(c, jsonConfig)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

// newViper returns a viper instance with defaults and environment binding.
// Every key needs a default, otherwise AutomaticEnv does not pick it up on Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("Title", "Users & Permissions")
	v.SetDefault("DB.GormEngine", "sqlite")
	v.SetDefault("DB.Name", "users-permissions.db")
	v.SetDefault("DB.Password", "")
	v.SetDefault("Webserver.ShutDownTime", defaultShutDownTime)
	v.SetDefault("Token.Issuer", "users-permissions")
	v.SetDefault("Token.AccessSecret", "")
	v.SetDefault("Token.RefreshSecret", "")
	v.SetDefault("Token.AccessTTL", 15*time.Minute)
	v.SetDefault("Token.RefreshTTL", 7*24*time.Hour)
	v.SetDefault("Token.RotateRefreshTokens", true)
	v.SetDefault("Audit.Sinks", []string{"db"})
	v.SetDefault("Audit.Retention", 365*24*time.Hour)
	v.SetDefault("Audit.AMQPURL", "")
	v.SetDefault("Audit.AMQPQueue", "audit.records")
	v.SetDefault("Cache.Backend", "memory")
	v.SetDefault("Cache.TTL", 5*time.Minute)
	v.SetDefault("Cache.RedisPassword", "")
	v.SetDefault("Cache.RedisPrefix", "users-permissions")
	v.SetDefault("Seed.AdminEmail", "")
	v.SetDefault("Seed.AdminPassword", "")

	return v
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String. Secrets are omitted.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String. Secrets are omitted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the service cannot start without.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Token.AccessSecret == "" || c.Token.RefreshSecret == "" {
		return errors.Wrap(ErrTokenSecretsMissing, invalidErrMessage)
	}

	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return errors.Wrap(ErrTokenSecretsEqual, invalidErrMessage)
	}

	for _, sink := range c.Audit.Sinks {
		if sink == "amqp" && c.Audit.AMQPURL == "" {
			return errors.Wrap(ErrAMQPURLMissing, invalidErrMessage)
		}
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
