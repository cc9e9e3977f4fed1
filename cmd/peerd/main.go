package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"meshpeer/internal/adminhttp"
	"meshpeer/internal/config"
	"meshpeer/internal/discovery"
	"meshpeer/internal/logging"
	"meshpeer/internal/peer"
	"meshpeer/internal/registry"
	"meshpeer/internal/timesync"
	"meshpeer/internal/transport/mdns"
	"meshpeer/internal/transport/ws"
)

func main() {
	logging.ConfigureRuntime()

	configPath := flag.String("config", "", "path to a peer TOML config file")
	adminAddr := flag.String("admin-addr", ":9000", "admin HTTP listen address")
	flag.Parse()

	if err := run(*configPath, *adminAddr); err != nil {
		fmt.Fprintf(os.Stderr, "peerd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, adminAddr string) error {
	cfg := config.DefaultPeerConfig()
	if configPath != "" {
		loaded, err := config.LoadPeerConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	rawHost := cfg.HostName
	if rawHost == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
		rawHost = hostname
	}
	localHostName := mdns.NormalizeHostname(rawHost)
	localHost := registry.Host{Name: localHostName, Port: uint16(cfg.Port)}

	advertiser := mdns.New(cfg.ServiceName, cfg.Port, localHostName)

	p := peer.New(cfg, localHost, ws.NewServer(), ws.NewClient(), advertiser)

	timer := timesync.NewPrecisionTimer(cfg.SamplingRateHz)

	discLog := logging.Component("discovery")
	driver := discovery.NewDriver(p, timer, discLog)

	admin := adminhttp.New(localHostName, adminAddr, p, nil)
	go func() {
		if err := admin.Serve(); err != nil {
			log.Error().Err(err).Msg("admin http server stopped")
		}
	}()

	log.Info().
		Str("host", localHostName).
		Int("port", cfg.Port).
		Str("service", cfg.ServiceName).
		Msg("peerd starting")

	go runSampleClock(timer, cfg.SamplingRateHz)

	ticker := time.NewTicker(cfg.DiscoverInterval())
	defer ticker.Stop()

	for range ticker.C {
		driver.Tick()
	}
	return nil
}

// runSampleClock stands in for the realtime audio thread spec.md §5
// says drives PrecisionTimer.Progress in a real deployment: it
// advances the clock in fixed 100ms blocks.
func runSampleClock(timer *timesync.PrecisionTimer, samplingRate float64) {
	const blockInterval = 100 * time.Millisecond
	blockSize := uint64(samplingRate * blockInterval.Seconds())

	ticker := time.NewTicker(blockInterval)
	defer ticker.Stop()
	for range ticker.C {
		timer.Progress(blockSize)
	}
}
