package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/api"
	"github.com/rubiojr/convos/pkg/config"
	"github.com/rubiojr/convos/pkg/log"
	"github.com/rubiojr/convos/pkg/realtime"
	"github.com/rubiojr/convos/pkg/storage"
)

var serveLogger = log.ForComponent("serve")

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides config)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

// serve runs the API server until interrupted. The configuration file is
// watched so db_path and search_limit changes take effect without a restart;
// SIGHUP forces a reload. Listen address changes require a restart.
func serve(ctx context.Context, configPath, listenOverride string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	listen := cfg.Listen
	if listenOverride != "" {
		listen = listenOverride
	}

	st, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeStorage(st)

	hub := realtime.NewHub(0)
	st.SetNotifier(func(msg storage.Message) {
		hub.Broadcast(realtime.MessageEvent{
			ID:           msg.ID,
			Body:         msg.Body,
			FlowLabel:    msg.FlowLabel,
			ContactID:    msg.ContactID,
			ContactName:  msg.ContactName,
			ContactPhone: msg.ContactPhone,
			InsertedAt:   msg.InsertedAt,
		})
	})

	server := api.NewServer(st, hub, cfg.SearchLimit)
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		serveLogger.Infof("listening on http://%s", listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Optimize every hour
	optimizeTicker := time.NewTicker(time.Hour)
	defer optimizeTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		serveLogger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				serveLogger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			serveLogger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			serveLogger.Infof("watching config file for changes: %s", configPath)
		}
	}

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown()
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case <-optimizeTicker.C:
			if err := st.Optimize(); err != nil {
				serveLogger.Warnf("optimize failed: %v", err)
			}
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				serveLogger.Infof("received SIGHUP, reloading configuration...")
				reloadConfiguration(configPath, listen, cfg.DBPath, server)
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nShutting down...")
				return shutdown()
			}
		case event, ok := <-watcher.Events:
			if !ok {
				continue
			}
			// Editors often replace the file, so react to rename/remove too.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					time.Sleep(200 * time.Millisecond)
					if _, err := os.Stat(configPath); os.IsNotExist(err) {
						serveLogger.Infof("config file removed and not replaced, skipping reload")
						continue
					}
					if err := watcher.Add(configPath); err != nil {
						serveLogger.Warnf("failed to re-add config file to watcher: %v", err)
					}
				} else {
					time.Sleep(100 * time.Millisecond)
				}
				serveLogger.Infof("config file changed (%s), reloading configuration...", event.Op)
				reloadConfiguration(configPath, listen, cfg.DBPath, server)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				continue
			}
			serveLogger.Warnf("config file watcher error: %v", err)
		}
	}
}

// reloadConfiguration re-reads the config file and applies what can change at
// runtime. db_path and listen changes are logged but need a restart.
func reloadConfiguration(configPath, currentListen, currentDBPath string, server *api.Server) {
	newCfg, err := config.LoadConfig(configPath)
	if err != nil {
		serveLogger.Errorf("failed to reload configuration: %v", err)
		return
	}

	server.SetDefaultLimit(newCfg.SearchLimit)
	if newCfg.Listen != currentListen {
		serveLogger.Warnf("listen address changed to %s; restart required to apply", newCfg.Listen)
	}
	if newCfg.DBPath != currentDBPath {
		serveLogger.Warnf("db_path changed to %s; restart required to apply", newCfg.DBPath)
	}
	serveLogger.Infof("configuration reloaded")
}
