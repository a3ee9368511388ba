// Command echo-client is spec §8 S1's reference client: it dials the echo
// server, writes a message, prints whatever comes back, and exits, with an
// optional --retry flag to exercise the reconnect-on-drop toggle (spec §6).
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/reactor/buffer"
	"github.com/nabbar/reactor/client"
	"github.com/nabbar/reactor/config"
	"github.com/nabbar/reactor/logger"
	"github.com/nabbar/reactor/loop"
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
	v.SetDefault("client.network", "tcp")
	v.SetDefault("client.address", "127.0.0.1:9000")

	var (
		message string
		retry   bool
	)

	cmd := &cobra.Command{
		Use:   "echo-client",
		Short: "Dial a reactor TCP echo server and print its response",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(v, message, retry)
		},
	}

	flags := cmd.Flags()
	flags.String("address", "127.0.0.1:9000", "server address (host:port)")
	flags.StringVar(&message, "message", "hello\n", "message to send")
	flags.BoolVar(&retry, "retry", false, "reconnect automatically if the connection drops")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error, fatal")

	_ = v.BindPFlag("client.address", flags.Lookup("address"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	return cmd
}

func runClient(v *viper.Viper, message string, retry bool) error {
	logger.Default.SetLevel(logger.ParseLevel(v.GetString("log.level")))

	cfg, err := config.LoadClient(v, "client")
	if err != nil {
		return fmt.Errorf("echo-client: %w", err)
	}

	l, err := loop.New()
	if err != nil {
		return fmt.Errorf("echo-client: new loop: %w", err)
	}
	go l.Run()
	defer l.Quit()

	c, err := client.New(l, cfg)
	if err != nil {
		return fmt.Errorf("echo-client: %w", err)
	}
	c.SetRetry(retry)

	connected := make(chan struct{}, 1)
	replied := make(chan string, 1)
	c.OnConnection = func(conn *tcp.Connection) {
		if conn.State() == tcp.ConnStateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	}
	c.OnMessage = func(conn *tcp.Connection, buf *buffer.Buffer, when time.Time) {
		replied <- buf.RetrieveAllAsString()
	}

	c.Connect()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("echo-client: timed out connecting to %s", cfg.Address)
	}

	c.Send([]byte(message))

	select {
	case reply := <-replied:
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		fmt.Fprint(w, reply)
	case <-time.After(5 * time.Second):
		return fmt.Errorf("echo-client: timed out waiting for reply")
	}

	c.Stop()
	return nil
}
