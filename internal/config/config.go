package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Ntrip NtripConfig `yaml:"ntrip"`
	GGA   GGAConfig   `yaml:"gga"`
	Sinks SinksConfig `yaml:"sinks"`
	Web   WebConfig   `yaml:"web"`
}

type NtripConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Mountpoint string `yaml:"mountpoint"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`

	UserAgent      string        `yaml:"user_agent"`
	ReportInterval time.Duration `yaml:"report_interval"`

	// Reconnect opts into the supervisor that re-runs the client with
	// backoff after a fatal stream error. The core client itself never
	// reconnects.
	Reconnect bool `yaml:"reconnect"`
}

type GGAConfig struct {
	// Source selects the position report source: "none", "fixed" or
	// "serial". When empty, defaults to "none" (some casters serve
	// corrections without a position report).
	Source string `yaml:"source"`

	Fixed  FixedGGAConfig  `yaml:"fixed"`
	Serial SerialGGAConfig `yaml:"serial"`
}

type FixedGGAConfig struct {
	LatDeg   float64       `yaml:"lat_deg"`
	LonDeg   float64       `yaml:"lon_deg"`
	AltM     float64       `yaml:"alt_m"`
	Interval time.Duration `yaml:"interval"`
}

type SerialGGAConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type SinksConfig struct {
	Log  LogSinkConfig  `yaml:"log"`
	UDP  UDPSinkConfig  `yaml:"udp"`
	MQTT MQTTSinkConfig `yaml:"mqtt"`
}

type LogSinkConfig struct {
	Enable bool `yaml:"enable"`
}

type UDPSinkConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTSinkConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// Load reads the YAML config, applies environment overrides for the
// credentials (NTRIP_USERNAME / NTRIP_PASSWORD, optionally via a .env
// file) and validates. Credentials can therefore stay out of the config
// file entirely.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()
	if v := os.Getenv("NTRIP_USERNAME"); v != "" {
		cfg.Ntrip.Username = v
	}
	if v := os.Getenv("NTRIP_PASSWORD"); v != "" {
		cfg.Ntrip.Password = v
	}

	if cfg.Ntrip.Host == "" {
		return Config{}, fmt.Errorf("ntrip.host is required")
	}
	if cfg.Ntrip.Port == "" {
		return Config{}, fmt.Errorf("ntrip.port is required")
	}
	if _, err := strconv.Atoi(cfg.Ntrip.Port); err != nil {
		return Config{}, fmt.Errorf("ntrip.port must be numeric, got %q", cfg.Ntrip.Port)
	}
	if cfg.Ntrip.Mountpoint == "" {
		return Config{}, fmt.Errorf("ntrip.mountpoint is required")
	}
	if cfg.Ntrip.Username == "" {
		return Config{}, fmt.Errorf("ntrip.username is required (config or NTRIP_USERNAME)")
	}
	if cfg.Ntrip.Password == "" {
		return Config{}, fmt.Errorf("ntrip.password is required (config or NTRIP_PASSWORD)")
	}
	if cfg.Ntrip.ReportInterval <= 0 {
		cfg.Ntrip.ReportInterval = 1 * time.Second
	}

	if cfg.GGA.Source == "" {
		cfg.GGA.Source = "none"
	}
	switch cfg.GGA.Source {
	case "none":
	case "fixed":
		if cfg.GGA.Fixed.Interval <= 0 {
			cfg.GGA.Fixed.Interval = 1 * time.Second
		}
	case "serial":
		if cfg.GGA.Serial.Device == "" {
			return Config{}, fmt.Errorf("gga.serial.device is required when gga.source is serial")
		}
		if cfg.GGA.Serial.Baud == 0 {
			cfg.GGA.Serial.Baud = 9600
		}
	default:
		return Config{}, fmt.Errorf("gga.source must be none, fixed or serial, got %q", cfg.GGA.Source)
	}

	if cfg.Sinks.UDP.Enable && cfg.Sinks.UDP.Dest == "" {
		return Config{}, fmt.Errorf("sinks.udp.dest is required when sinks.udp.enable is true")
	}
	if cfg.Sinks.MQTT.Enable {
		if cfg.Sinks.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("sinks.mqtt.broker is required when sinks.mqtt.enable is true")
		}
		if cfg.Sinks.MQTT.Topic == "" {
			return Config{}, fmt.Errorf("sinks.mqtt.topic is required when sinks.mqtt.enable is true")
		}
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	return cfg, nil
}
