package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/treemana/fakedns/listener"
)

// Validate checks what can be checked without binding sockets. The response settings
// are checked by the listener when it starts.
func (c *Config) Validate() error {
	if len(c.Listeners) == 0 {
		return errors.New("at least one listener is required")
	}

	if c.Log.Level < -1 || c.Log.Level > 2 {
		return fmt.Errorf("invalid log level: %d", c.Log.Level)
	}

	names := make(map[string]struct{}, len(c.Listeners))
	for i, l := range c.Listeners {
		if err := validateListener(l); err != nil {
			return fmt.Errorf("listener %d (%s): %w", i, l.Name, err)
		}

		if _, ok := names[l.Name]; ok {
			return fmt.Errorf("listener %d: duplicate name %q", i, l.Name)
		}
		names[l.Name] = struct{}{}
	}

	return nil
}

func validateListener(l listener.Config) error {
	switch strings.ToLower(l.Protocol) {
	case listener.ProtocolUDP, listener.ProtocolTCP:
	default:
		return fmt.Errorf("%w %q", listener.ErrUnknownProtocol, l.Protocol)
	}

	if ip := net.ParseIP(l.Address); ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid IPv4 bind address: %s", l.Address)
	}

	if l.Port < 1 || l.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", l.Port)
	}

	if l.Timeout < 1 {
		return fmt.Errorf("invalid timeout: %d (must be at least 1 second)", l.Timeout)
	}

	if l.NXDomains < 0 {
		return fmt.Errorf("invalid nxdomains: %d", l.NXDomains)
	}

	return nil
}
