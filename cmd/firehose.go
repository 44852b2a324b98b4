package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/config"
)

// FirehoseCommand creates a CLI command that tails the API server's
// websocket firehose and writes NDJSON message events to stdout.
//
// Typical usage:
//
//	convos firehose
//	convos firehose --server localhost:8787 | jq -r .message.body
//
// The command auto-reconnects with exponential backoff if the server is not
// yet available or the connection drops. It never exits unless the context
// is cancelled or --no-retry is set and a connection fails.
func FirehoseCommand() *cli.Command {
	return &cli.Command{
		Name:  "firehose",
		Usage: "Stream realtime message events (NDJSON) from the API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "API server address (overrides config listen address)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON instead of raw single-line",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "no-retry",
				Usage: "Do not retry on failures; exit on first connection error",
				Value: false,
			},
			&cli.DurationFlag{
				Name:  "initial-backoff",
				Usage: "Initial reconnect backoff",
				Value: 1 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "max-backoff",
				Usage: "Maximum reconnect backoff",
				Value: 30 * time.Second,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			server := c.String("server")
			if server == "" {
				cfg, err := config.LoadConfig(c.String("config"))
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				server = cfg.Listen
			}

			opts := firehoseTailOptions{
				wsURL:          (&url.URL{Scheme: "ws", Host: server, Path: "/api/firehose"}).String(),
				pretty:         c.Bool("pretty"),
				noRetry:        c.Bool("no-retry"),
				initialBackoff: c.Duration("initial-backoff"),
				maxBackoff:     c.Duration("max-backoff"),
				stdout:         os.Stdout,
				stderr:         os.Stderr,
			}
			return tailFirehose(ctx, opts)
		},
	}
}

type firehoseTailOptions struct {
	wsURL          string
	pretty         bool
	noRetry        bool
	initialBackoff time.Duration
	maxBackoff     time.Duration
	stdout         *os.File
	stderr         *os.File
}

func tailFirehose(ctx context.Context, opts firehoseTailOptions) error {
	if opts.initialBackoff <= 0 {
		opts.initialBackoff = time.Second
	}
	if opts.maxBackoff < opts.initialBackoff {
		opts.maxBackoff = 30 * time.Second
	}

	_, _ = fmt.Fprintf(opts.stderr, "Firehose: connecting to %s\n", opts.wsURL)
	backoff := opts.initialBackoff

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.wsURL, nil)
		if err != nil {
			if opts.noRetry {
				return fmt.Errorf("dial: %w", err)
			}
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			_, _ = fmt.Fprintf(opts.stderr, "Firehose: dial failed (%v), retrying in %s\n", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > opts.maxBackoff {
				backoff = opts.maxBackoff
			}
			continue
		}

		_, _ = fmt.Fprintf(opts.stderr, "Firehose: connected (backoff reset)\n")
		backoff = opts.initialBackoff

		if err := streamEvents(ctx, conn, opts); err != nil {
			_ = conn.Close()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if opts.noRetry {
				return err
			}
			_, _ = fmt.Fprintf(opts.stderr, "Firehose: stream error (%v), reconnecting...\n", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
			continue
		}

		if opts.noRetry {
			return nil
		}
		_, _ = fmt.Fprintf(opts.stderr, "Firehose: disconnected, attempting reconnect...\n")
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, opts firehoseTailOptions) error {
	defer func() { _ = conn.Close() }()

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		if opts.pretty {
			var anyJSON any
			if err := json.Unmarshal(payload, &anyJSON); err == nil {
				if b, err := json.MarshalIndent(anyJSON, "", "  "); err == nil {
					_, _ = fmt.Fprintln(opts.stdout, string(b))
					continue
				}
			}
		}
		_, _ = fmt.Fprintln(opts.stdout, string(payload))
	}
}
