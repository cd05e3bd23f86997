package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Sweeper is the subset of sweeper.Sweeper that hot-reload can adjust
// live. Defined here, rather than importing the sweeper package, to
// avoid a config->sweeper dependency in the opposite direction of the
// one main.go already wires.
type Sweeper interface {
	SetTTL(time.Duration)
	SetInterval(time.Duration)
}

// Watch watches path for writes and, on each change, re-reads the file
// and applies any change to ttl_seconds or interval_seconds to sw
// without restarting the process. Changes to the listen port, data
// file path, or pool sizes are detected and logged as a warning,
// since applying them live would require rebinding sockets the running
// acceptor already owns.
func Watch(ctx context.Context, path string, current *Config, sw Sweeper, log *slog.Logger) error {
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloaded, err := Load(path)
			if err != nil {
				log.Warn("config reload failed, keeping previous configuration", "error", err)
				continue
			}
			applyReload(current, reloaded, sw, log)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher error", "error", err)
		}
	}
}

func applyReload(current, reloaded *Config, sw Sweeper, log *slog.Logger) {
	if reloaded.Server.Port != current.Server.Port {
		log.Warn("server.port changed in config file but requires a restart, ignoring",
			"running", current.Server.Port, "configured", reloaded.Server.Port)
	}
	if reloaded.Storage.DataFile != current.Storage.DataFile {
		log.Warn("storage.data_file changed in config file but requires a restart, ignoring",
			"running", current.Storage.DataFile, "configured", reloaded.Storage.DataFile)
	}
	if reloaded.Server.PoolSize != current.Server.PoolSize {
		log.Warn("server.pool_size changed in config file but requires a restart, ignoring",
			"running", current.Server.PoolSize, "configured", reloaded.Server.PoolSize)
	}

	if reloaded.Sweeper.TTLSeconds != current.Sweeper.TTLSeconds {
		ttl := time.Duration(reloaded.Sweeper.TTLSeconds) * time.Second
		sw.SetTTL(ttl)
		log.Info("sweeper.ttl_seconds hot-reloaded", "ttl", ttl)
		current.Sweeper.TTLSeconds = reloaded.Sweeper.TTLSeconds
	}
	if reloaded.Sweeper.IntervalSeconds != current.Sweeper.IntervalSeconds {
		interval := time.Duration(reloaded.Sweeper.IntervalSeconds) * time.Second
		sw.SetInterval(interval)
		log.Info("sweeper.interval_seconds hot-reloaded", "interval", interval)
		current.Sweeper.IntervalSeconds = reloaded.Sweeper.IntervalSeconds
	}
}
