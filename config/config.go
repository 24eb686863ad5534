// Package config loads the fakedns configuration file.
package config

import (
	"github.com/treemana/fakedns/listener"
	"github.com/treemana/fakedns/log"
)

type Config struct {
	Log       log.Config        `json:"log" yaml:"log" toml:"log"`
	Listeners []listener.Config `json:"listeners" yaml:"listeners" toml:"listeners"`
}

// log rotation defaults
const (
	defaultMaxAge     = 2
	defaultMaxSize    = 10
	defaultMaxBackups = 100
)
