package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksbridge/internal/dialer"
	"github.com/die-net/socksbridge/internal/logging"
	"github.com/die-net/socksbridge/internal/proxy"
	"github.com/die-net/socksbridge/internal/tunnel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenPort = pflag.Int("listen-port", 8118, "Loopback port accepting SOCKS5 and HTTP proxy clients")
		socksPort  = pflag.Int("socks-port", 1080, "Loopback port of the SOCKS5 backend")

		tunnelConfig = pflag.String("tunnel-config", "", "YAML file describing a tunnel client to run as the SOCKS5 backend. Empty disables.")
		tunnelBin    = pflag.String("tunnel-bin", "pingtunnel", "Tunnel client binary")

		debugListen  = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /metrics (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout  = pflag.Duration("dial-timeout", dialer.DefaultDialTimeout, "Timeout for the TCP connect to the SOCKS5 backend")
		tcpKeepAlive = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		verbose      = pflag.Bool("verbose", false, "Enable per-connection debug logging")
		logJSON      = pflag.Bool("log-json", false, "Log JSON lines instead of console text")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	log := logging.New(os.Stderr, *logJSON, *verbose)

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	var tunnelCfg *tunnel.Config
	if *tunnelConfig != "" {
		tunnelCfg, err = tunnel.LoadConfig(*tunnelConfig)
		if err != nil {
			return fmt.Errorf("invalid --tunnel-config: %w", err)
		}
		if pflag.CommandLine.Changed("socks-port") && *socksPort != tunnelCfg.LocalSOCKSPort {
			log.Warn().Int("socks_port", tunnelCfg.LocalSOCKSPort).Msg("--socks-port overridden by tunnel config")
		}
		*socksPort = tunnelCfg.LocalSOCKSPort
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *debugListen != "" {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", *debugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info().Str("addr", *debugListen).Msg("debug listening")
	}

	var tun *tunnel.Process
	if tunnelCfg != nil {
		argv, err := tunnel.Args(*tunnelBin, tunnelCfg)
		if err != nil {
			return fmt.Errorf("tunnel args: %w", err)
		}
		// Not tied to ctx: the tunnel is stopped after the bridge.
		tun, err = tunnel.Start(context.Background(), log, "tunnel", argv, "")
		if err != nil {
			return err
		}
		defer tun.Stop()

		g.Go(func() error {
			select {
			case <-tun.Done():
				if err := tun.Err(); err != nil {
					return fmt.Errorf("tunnel exited: %w", err)
				}
				return errors.New("tunnel exited")
			case <-ctx.Done():
				return nil
			}
		})
		log.Info().Str("server", tunnelCfg.ServerAddress()).Int("socks_port", tunnelCfg.LocalSOCKSPort).Msg("tunnel started")
	}

	bridge := proxy.NewBridge(proxy.Config{
		DialTimeout: *dialTimeout,
		KeepAlive:   ka,
		Log:         log,
		Metrics:     proxy.NewMetrics(reg),
	})
	if err := bridge.Start(*listenPort, *socksPort); err != nil {
		return err
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err = g.Wait()

	log.Info().Msg("shutting down")
	bridge.Stop()
	if tun != nil {
		tun.Stop()
	}

	return err
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
