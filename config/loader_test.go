package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treemana/fakedns/listener"
	"github.com/treemana/fakedns/policy"
)

const yamlConfig = `
log:
  stdout: true
  level: -1
listeners:
  - name: DNS
    protocol: udp
    address: 127.0.0.1
    port: 5353
    nxdomains: 2
    responsea: 192.0.2.123
    ttl: 30
  - name: DNSTCP
    protocol: TCP
    responsea: 10.10.0.0/24
    failonce: true
    responsemx: mx.fake.test.
    responsetxt: hello
    timeout: 9
`

const jsonConfig = `{
  "log": {"file": "fakedns.log", "json": true},
  "listeners": [
    {"name": "DNS", "protocol": "udp", "port": 5353, "nxdomains": 2, "responsea": "192.0.2.123", "ttl": 30}
  ]
}`

const tomlConfig = `
[log]
stdout = true

[[listeners]]
name = "DNS"
protocol = "udp"
port = 5353
nxdomains = 2
responsea = "192.0.2.123"
ttl = 30
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	config, err := Load(write(t, "fakedns.yaml", yamlConfig))
	require.NoError(t, err)

	assert.True(t, config.Log.STDOUT)
	assert.Equal(t, int8(-1), config.Log.Level)
	assert.Equal(t, defaultMaxBackups, config.Log.MaxBackups)

	require.Len(t, config.Listeners, 2)
	assert.Equal(t, listener.Config{
		Name:     "DNS",
		Protocol: "udp",
		Address:  "127.0.0.1",
		Port:     5353,
		Timeout:  listener.DefaultTimeout,
		Config: policy.Config{
			ResponseA:   "192.0.2.123",
			ResponseMX:  policy.DefaultResponseMX,
			ResponseTXT: policy.DefaultResponseTXT,
			NXDomains:   2,
			TTL:         30,
		},
	}, config.Listeners[0])

	tcp := config.Listeners[1]
	assert.Equal(t, "TCP", tcp.Protocol)
	assert.Equal(t, listener.DefaultAddress, tcp.Address)
	assert.Equal(t, listener.DefaultPort, tcp.Port)
	assert.Equal(t, 9, tcp.Timeout)
	assert.True(t, tcp.FailOnce)
	assert.Equal(t, "10.10.0.0/24", tcp.ResponseA)
	assert.Equal(t, "mx.fake.test.", tcp.ResponseMX)
	assert.Equal(t, "hello", tcp.ResponseTXT)
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "json", file: "fakedns.json", content: jsonConfig},
		{name: "toml", file: "fakedns.toml", content: tomlConfig},
		{name: "yml", file: "fakedns.YML", content: yamlConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := Load(write(t, tt.file, tt.content))
			require.NoError(t, err)
			require.NotEmpty(t, config.Listeners)

			l := config.Listeners[0]
			assert.Equal(t, "DNS", l.Name)
			assert.Equal(t, 5353, l.Port)
			assert.Equal(t, 2, l.NXDomains)
			assert.Equal(t, "192.0.2.123", l.ResponseA)
			assert.Equal(t, uint32(30), l.TTL)
		})
	}
}

func TestLoad_JSONFileOnlyLogging(t *testing.T) {
	config, err := Load(write(t, "fakedns.json", jsonConfig))
	require.NoError(t, err)

	assert.False(t, config.Log.STDOUT)
	assert.Equal(t, "fakedns.log", config.Log.File)
	assert.True(t, config.Log.JsonFormat)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(write(t, "fakedns.ini", yamlConfig))
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(write(t, "fakedns.yaml", "listeners: [oops"))
	require.Error(t, err)

	_, err = Load(write(t, "fakedns.yaml", "log:\n  stdout: true\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Listeners: []listener.Config{{
				Name:     "DNS",
				Protocol: "udp",
				Address:  "0.0.0.0",
				Port:     53,
				Timeout:  5,
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no listeners", mutate: func(c *Config) { c.Listeners = nil }},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = 5 }},
		{name: "protocol", mutate: func(c *Config) { c.Listeners[0].Protocol = "http" }, wantErr: listener.ErrUnknownProtocol},
		{name: "address", mutate: func(c *Config) { c.Listeners[0].Address = "::1" }},
		{name: "port low", mutate: func(c *Config) { c.Listeners[0].Port = 0 }},
		{name: "port high", mutate: func(c *Config) { c.Listeners[0].Port = 65536 }},
		{name: "timeout", mutate: func(c *Config) { c.Listeners[0].Timeout = 0 }},
		{name: "nxdomains", mutate: func(c *Config) { c.Listeners[0].NXDomains = -1 }},
		{name: "duplicate name", mutate: func(c *Config) { c.Listeners = append(c.Listeners, c.Listeners[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.name == "valid" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
