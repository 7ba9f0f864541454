package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/edirooss/logickeys/pkg/hostutil"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "logickeys.yaml"

// Config is the full runtime configuration, loaded from YAML.
type Config struct {
	Mixer     MixerConfig     `yaml:"mixer"`
	Mute      MuteConfig      `yaml:"mute"`
	MIDI      MIDIConfig      `yaml:"midi"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	HTTP      HTTPConfig      `yaml:"http"`
	State     StateConfig     `yaml:"state"`
	Log       LogConfig       `yaml:"log"`
	Hotkeys   HotkeysConfig   `yaml:"hotkeys"`
}

type MixerConfig struct {
	Host          string        `yaml:"host"`       // Static mixer IP; empty means discover
	HostOctet     uint8         `yaml:"host_octet"` // Last octet guessed on the local /24
	Port          uint16        `yaml:"port"`
	SocketTimeout time.Duration `yaml:"socket_timeout"`
}

type MuteConfig struct {
	Paths       []string `yaml:"paths"`
	MuteValue   int32    `yaml:"mute_value"`
	UnmuteValue int32    `yaml:"unmute_value"`
	MuteKey     string   `yaml:"mute_key"` // Single character; space always unmutes
}

type MIDIConfig struct {
	Path                string `yaml:"path"`
	DinRxValue          int32  `yaml:"din_rx_value"`           // b0: DIN CC/PC rx
	UsbDinPassthruValue int32  `yaml:"usb_din_passthru_value"` // b6: DIN <-> USB passthru
}

type ReconnectConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type DiscoveryConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // "off" disables the control API
}

// Enabled reports whether the control API should be served.
func (h HTTPConfig) Enabled() bool { return h.Addr != "off" }

type StateConfig struct {
	RedisAddr string `yaml:"redis_address"` // Empty means in-memory
	RedisDB   int    `yaml:"redis_db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type HotkeysConfig struct {
	Terminal *bool `yaml:"terminal"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Mute: MuteConfig{UnmuteValue: 1},
		MIDI: MIDIConfig{DinRxValue: 1, UsbDinPassthruValue: 64},
	}
	cfg.setDefaults()
	return cfg
}

// setDefaults fills fields whose zero value is never meaningful. OSC values
// may legitimately be 0, so their defaults live in Default only.
func (c *Config) setDefaults() {
	c.Mixer.Host = strings.Trim(c.Mixer.Host, "[]")
	if c.Mixer.HostOctet == 0 {
		c.Mixer.HostOctet = 20
	}
	if c.Mixer.Port == 0 {
		c.Mixer.Port = 10024
	}
	if c.Mixer.SocketTimeout <= 0 {
		c.Mixer.SocketTimeout = 5 * time.Second
	}
	if len(c.Mute.Paths) == 0 {
		c.Mute.Paths = []string{"/bus/1/mix/on"}
	}
	if c.Mute.MuteKey == "" {
		c.Mute.MuteKey = "r"
	}
	if c.MIDI.Path == "" {
		c.MIDI.Path = "/-prefs/midiconfig"
	}
	if c.Reconnect.Interval <= 0 {
		c.Reconnect.Interval = 5 * time.Second
	}
	if c.Discovery.TTL <= 0 {
		c.Discovery.TTL = 15 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:7018"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Hotkeys.Terminal == nil {
		on := true
		c.Hotkeys.Terminal = &on
	}
}

// Validate rejects configurations the controller cannot run with.
func (c *Config) Validate() error {
	if c.Mixer.Host != "" {
		if err := hostutil.ValidateHost(c.Mixer.Host); err != nil {
			return fmt.Errorf("mixer.host: %w", err)
		}
	}
	for i, p := range c.Mute.Paths {
		if p == "" {
			return fmt.Errorf("mute.paths[%d]: empty path", i)
		}
	}
	if c.Mute.MuteValue == c.Mute.UnmuteValue {
		return errors.New("mute: mute_value and unmute_value must differ")
	}
	if c.MIDI.DinRxValue == c.MIDI.UsbDinPassthruValue {
		return errors.New("midi: din_rx_value and usb_din_passthru_value must differ")
	}
	if len([]rune(c.Mute.MuteKey)) != 1 || c.Mute.MuteKey == " " {
		return fmt.Errorf("mute.mute_key: want a single non-space character, got %q", c.Mute.MuteKey)
	}
	return nil
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates. Keys absent from data
// keep their default; explicit zeros are kept.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return cfg, nil
}
