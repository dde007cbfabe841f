// Package config loads server settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"royalletters/internal/engine"
)

// Server holds the settings of a hosting process.
type Server struct {
	Port int `env:"ROYAL_LETTERS_PORT" envDefault:"8080"`
	// PublicHost is the host:port guests use in join links; empty uses the request host.
	PublicHost    string `env:"ROYAL_LETTERS_PUBLIC_HOST"`
	Ruleset       string `env:"ROYAL_LETTERS_RULESET" envDefault:"2019"`
	TokensToWin   int    `env:"ROYAL_LETTERS_TOKENS_TO_WIN" envDefault:"0"`
	Seed          string `env:"ROYAL_LETTERS_SEED"`
	LogLevel      string `env:"ROYAL_LETTERS_LOG_LEVEL" envDefault:"info"`
	AISeats       int    `env:"ROYAL_LETTERS_AI_SEATS" envDefault:"0"`
	AutoStartAt   int    `env:"ROYAL_LETTERS_AUTO_START_AT" envDefault:"0"`
	AutoNextRound bool   `env:"ROYAL_LETTERS_AUTO_NEXT_ROUND" envDefault:"true"`
	ReplayActions bool   `env:"ROYAL_LETTERS_REPLAY_ACTIONS" envDefault:"false"`
}

// Load parses and validates the environment.
func Load() (Server, error) {
	var c Server
	if err := env.Parse(&c); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Server{}, err
	}
	return c, nil
}

// Validate checks values env parsing cannot.
func (c Server) Validate() error {
	spec, err := engine.Ruleset(c.Ruleset).Spec()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Port)
	case c.TokensToWin < 0:
		return fmt.Errorf("config: negative tokens to win")
	case c.AISeats < 0 || c.AISeats > spec.MaxPlayers:
		return fmt.Errorf("config: %d AI seats, ruleset %s seats at most %d", c.AISeats, c.Ruleset, spec.MaxPlayers)
	case c.AutoStartAt < 0 || c.AutoStartAt > spec.MaxPlayers:
		return fmt.Errorf("config: auto start at %d, ruleset %s seats at most %d", c.AutoStartAt, c.Ruleset, spec.MaxPlayers)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c Server) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
