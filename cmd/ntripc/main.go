package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ntripc/internal/config"
	"ntripc/internal/gps"
	"ntripc/internal/ntrip"
	"ntripc/internal/sink"
	"ntripc/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./ntripc.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var sinks sink.Multi
	if cfg.Sinks.Log.Enable {
		sinks = append(sinks, sink.Log{})
	}
	if cfg.Sinks.UDP.Enable {
		u, err := sink.NewUDP(cfg.Sinks.UDP.Dest)
		if err != nil {
			log.Fatalf("udp sink init failed: %v", err)
		}
		defer u.Close()
		sinks = append(sinks, u)
	}
	if cfg.Sinks.MQTT.Enable {
		m, err := sink.NewMQTT(sink.MQTTConfig{
			Broker:   cfg.Sinks.MQTT.Broker,
			ClientID: cfg.Sinks.MQTT.ClientID,
			Topic:    cfg.Sinks.MQTT.Topic,
			QoS:      cfg.Sinks.MQTT.QoS,
		})
		if err != nil {
			log.Fatalf("mqtt sink init failed: %v", err)
		}
		defer m.Close()
		sinks = append(sinks, m)
	}

	var bcast *web.Broadcaster
	if cfg.Web.Enable {
		bcast = web.NewBroadcaster()
		sinks = append(sinks, bcast)
	}

	var streamSink io.Writer
	if len(sinks) > 0 {
		streamSink = sinks
	}

	client := ntrip.New(ntrip.Config{
		Host:           cfg.Ntrip.Host,
		Port:           cfg.Ntrip.Port,
		Mountpoint:     cfg.Ntrip.Mountpoint,
		Username:       cfg.Ntrip.Username,
		Password:       cfg.Ntrip.Password,
		UserAgent:      cfg.Ntrip.UserAgent,
		ReportInterval: cfg.Ntrip.ReportInterval,
		Sink:           streamSink,
	})

	switch cfg.GGA.Source {
	case "fixed":
		src := gps.NewFixed(gps.FixedConfig{
			LatDeg:   cfg.GGA.Fixed.LatDeg,
			LonDeg:   cfg.GGA.Fixed.LonDeg,
			AltM:     cfg.GGA.Fixed.AltM,
			Interval: cfg.GGA.Fixed.Interval,
		}, client.UpdateGGA)
		if err := src.Start(ctx); err != nil {
			log.Fatalf("gga source init failed: %v", err)
		}
		defer src.Close()
	case "serial":
		src := gps.NewSerial(gps.SerialConfig{
			Device: cfg.GGA.Serial.Device,
			Baud:   cfg.GGA.Serial.Baud,
		}, client.UpdateGGA)
		if err := src.Start(ctx); err != nil {
			log.Fatalf("gga source init failed: %v", err)
		}
		defer src.Close()
	}

	if cfg.Web.Enable {
		handler := web.Handler(client, web.Info{
			Caster:     net.JoinHostPort(cfg.Ntrip.Host, cfg.Ntrip.Port),
			Mountpoint: cfg.Ntrip.Mountpoint,
		}, bcast)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, handler); err != nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
	}

	if err := client.Run(ctx); err != nil {
		if !cfg.Ntrip.Reconnect {
			log.Fatalf("ntrip run failed: %v", err)
		}
		// The supervisor owns retries; a caster that is down at boot
		// must not take the process with it.
		log.Printf("ntrip run failed: %v", err)
	}
	log.Printf("ntripc starting caster=%s:%s mountpoint=%s",
		cfg.Ntrip.Host, cfg.Ntrip.Port, cfg.Ntrip.Mountpoint)

	if cfg.Ntrip.Reconnect {
		go supervise(ctx, client)
	}

	<-ctx.Done()
	log.Printf("ntripc stopping")
	if err := client.Stop(); err != nil {
		log.Printf("client stop failed: %v", err)
	}
}

// supervise re-runs the client after a fatal stream error, with
// exponential backoff. Opt-in via ntrip.reconnect; the client itself
// never reconnects.
func supervise(ctx context.Context, client *ntrip.Client) {
	const (
		minBackoff = 250 * time.Millisecond
		maxBackoff = 10 * time.Second
	)
	backoff := minBackoff

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if client.IsRunning() {
			backoff = minBackoff
			continue
		}

		log.Printf("stream down, reconnecting in %s", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if err := client.Run(ctx); err != nil {
			log.Printf("reconnect failed: %v", err)
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = minBackoff
		log.Printf("reconnected")
	}
}
