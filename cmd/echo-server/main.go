// Command echo-server is spec §8 S1's reference server: it binds a TCP
// address, echoes back every byte it reads, and logs connect/disconnect
// events, configured via flags and an optional YAML file through the same
// config.LoadServer path the config package tests exercise.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/reactor/buffer"
	"github.com/nabbar/reactor/config"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/loop"
	"github.com/nabbar/reactor/server"
	"github.com/nabbar/reactor/tcp"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetDefault("server.network", "tcp")
	v.SetDefault("server.address", ":9000")
	v.SetDefault("server.poolsize", 0)

	var configFile string

	cmd := &cobra.Command{
		Use:   "echo-server",
		Short: "Run a reactor TCP echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(v, configFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to a YAML file with a top-level server: block")
	flags.String("address", ":9000", "listen address (host:port)")
	flags.Int("pool-size", 0, "number of subordinate loops connections are spread across")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error, fatal")

	for flag, key := range map[string]string{
		"address":   "server.address",
		"pool-size": "server.poolsize",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	v.SetDefault("log.level", "info")

	return cmd
}

func runServer(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("echo-server: read config: %w", err)
		}
	}

	logger.Default.SetLevel(logger.ParseLevel(v.GetString("log.level")))

	cfg, err := config.LoadServer(v, "server")
	if err != nil {
		return fmt.Errorf("echo-server: %w", err)
	}

	base, err := loop.New()
	if err != nil {
		return fmt.Errorf("echo-server: new loop: %w", err)
	}
	go base.Run()
	defer base.Quit()

	srv, err := server.New(base, cfg)
	if err != nil {
		return fmt.Errorf("echo-server: %w", err)
	}

	srv.OnConnection = func(c *tcp.Connection) {
		logger.Default.Infof("echo-server: %s is now %v", c.Name(), c.State())
	}
	srv.OnMessage = func(c *tcp.Connection, buf *buffer.Buffer, when time.Time) {
		c.Send([]byte(buf.RetrieveAllAsString()))
	}

	if err := srv.Listen(); err != nil {
		return fmt.Errorf("echo-server: listen: %w", err)
	}
	logger.Default.Infof("echo-server: listening on %s", cfg.Address)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
