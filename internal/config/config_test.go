package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ntripc.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimal = `
ntrip:
  host: caster.example
  port: "2101"
  mountpoint: RTCM33
  username: user
  password: pass
`

func TestLoad_MinimalWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ntrip.Host != "caster.example" || cfg.Ntrip.Port != "2101" {
		t.Fatalf("ntrip: %+v", cfg.Ntrip)
	}
	if cfg.Ntrip.ReportInterval != 1*time.Second {
		t.Fatalf("report interval default: %v", cfg.Ntrip.ReportInterval)
	}
	if cfg.GGA.Source != "none" {
		t.Fatalf("gga source default: %q", cfg.GGA.Source)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ntrip:
  host: caster.example
  port: "2101"
  mountpoint: RTCM33
  username: user
  password: pass
  report_interval: 5s
  reconnect: true
gga:
  source: fixed
  fixed:
    lat_deg: 31.1677
    lon_deg: 121.2166
    alt_m: 10
sinks:
  udp:
    enable: true
    dest: 127.0.0.1:5800
  mqtt:
    enable: true
    broker: tcp://localhost:1883
    topic: gnss/rtcm
web:
  enable: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ntrip.ReportInterval != 5*time.Second {
		t.Fatalf("report interval: %v", cfg.Ntrip.ReportInterval)
	}
	if !cfg.Ntrip.Reconnect {
		t.Fatalf("reconnect not set")
	}
	if cfg.GGA.Fixed.Interval != 1*time.Second {
		t.Fatalf("fixed interval default: %v", cfg.GGA.Fixed.Interval)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("web listen default: %q", cfg.Web.Listen)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"missing host",
			"ntrip:\n  port: \"2101\"\n  mountpoint: M\n  username: u\n  password: p\n",
			"ntrip.host",
		},
		{
			"non-numeric port",
			"ntrip:\n  host: h\n  port: \"ntrip\"\n  mountpoint: M\n  username: u\n  password: p\n",
			"numeric",
		},
		{
			"missing password",
			"ntrip:\n  host: h\n  port: \"2101\"\n  mountpoint: M\n  username: u\n",
			"ntrip.password",
		},
		{
			"bad gga source",
			minimal + "gga:\n  source: gpsd\n",
			"gga.source",
		},
		{
			"serial without device",
			minimal + "gga:\n  source: serial\n",
			"gga.serial.device",
		},
		{
			"udp without dest",
			minimal + "sinks:\n  udp:\n    enable: true\n",
			"sinks.udp.dest",
		},
		{
			"mqtt without broker",
			minimal + "sinks:\n  mqtt:\n    enable: true\n    topic: t\n",
			"sinks.mqtt.broker",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv("NTRIP_USERNAME", "envuser")
	t.Setenv("NTRIP_PASSWORD", "envpass")

	cfg, err := Load(writeConfig(t, `
ntrip:
  host: caster.example
  port: "2101"
  mountpoint: RTCM33
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ntrip.Username != "envuser" || cfg.Ntrip.Password != "envpass" {
		t.Fatalf("env override: %+v", cfg.Ntrip)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
