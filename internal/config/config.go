// Package config loads the broker connection settings used by the command line tools.
package config

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/eventband/amqp"
)

// Config holds the settings read from the environment.
type Config struct {
	Definition amqp.ConnectionDefinition
	LogLevel   zerolog.Level
}

// env is the raw environment layout.
type env struct {
	Host              string  `envconfig:"AMQP_HOST" default:"localhost"`
	Port              int     `envconfig:"AMQP_PORT" default:"5672"`
	User              string  `envconfig:"AMQP_USER" default:"guest"`
	Password          string  `envconfig:"AMQP_PASSWORD" default:"guest"`
	VirtualHost       string  `envconfig:"AMQP_VHOST" default:"/"`
	Locale            string  `envconfig:"AMQP_LOCALE" default:"en_US"`
	Heartbeat         Seconds `envconfig:"AMQP_HEARTBEAT" default:"10s"`
	ConnectionTimeout Seconds `envconfig:"AMQP_CONNECTION_TIMEOUT" default:"30s"`
	ReadWriteTimeout  Seconds `envconfig:"AMQP_READ_WRITE_TIMEOUT" default:"0"`
	Keepalive         bool    `envconfig:"AMQP_KEEPALIVE" default:"false"`
	TLS               bool    `envconfig:"AMQP_TLS" default:"false"`
	LogLevel          Level   `envconfig:"LOG_LEVEL" default:"info"`
}

// Seconds is a duration given either as a Go duration ("15s") or a whole number of seconds.
type Seconds time.Duration

// Decode implements envconfig.Decoder.
func (s *Seconds) Decode(value string) error {
	if secs, err := strconv.Atoi(value); err == nil {
		*s = Seconds(time.Duration(secs) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*s = Seconds(d)
	return nil
}

// Level is a zerolog level name.
type Level zerolog.Level

// Decode implements envconfig.Decoder.
func (l *Level) Decode(value string) error {
	lvl, err := zerolog.ParseLevel(value)
	if err != nil {
		return err
	}
	*l = Level(lvl)
	return nil
}

// Load reads configuration from a .env file, environment variables or defaults.
// Priority: environment variables > .env file > default values.
func Load(files ...string) (*Config, error) {
	// a missing .env file is not an error.
	_ = godotenv.Load(files...)

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &Config{
		Definition: e.definition(),
		LogLevel:   zerolog.Level(e.LogLevel),
	}, nil
}

// LoadDefinition builds a connection definition from the AMQP_* variables.
func LoadDefinition() (amqp.ConnectionDefinition, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return amqp.ConnectionDefinition{}, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return e.definition(), nil
}

func (e env) definition() amqp.ConnectionDefinition {
	def := amqp.ConnectionDefinition{
		Host:              e.Host,
		Port:              e.Port,
		User:              e.User,
		Password:          e.Password,
		VirtualHost:       e.VirtualHost,
		Locale:            e.Locale,
		Heartbeat:         time.Duration(e.Heartbeat),
		ConnectionTimeout: time.Duration(e.ConnectionTimeout),
		ReadWriteTimeout:  time.Duration(e.ReadWriteTimeout),
		Keepalive:         e.Keepalive,
	}
	if e.TLS {
		def.TLS = &tls.Config{ServerName: def.Host}
	}
	return def
}
