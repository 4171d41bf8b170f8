package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors save config files as rename-and-replace, which fires several
// events in quick succession; the debounce collapses them into one
// reload.
const debounceDelay = 250 * time.Millisecond

// Watch reloads cfile whenever it changes and hands the validated
// result to onChange. A file that fails to parse or validate is logged
// and skipped, the previous configuration stays in effect. The
// returned function stops watching.
func Watch(cfile string, onChange func(*Config)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: replace-on-save swaps the
	// inode and a file watch would go stale after the first edit.
	dir := filepath.Dir(cfile)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	base := filepath.Base(cfile)
	done := make(chan struct{})
	go func() {
		var pending *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-done:
				if pending != nil {
					pending.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if pending == nil {
					pending = time.NewTimer(debounceDelay)
					fire = pending.C
				} else {
					pending.Reset(debounceDelay)
				}
			case <-fire:
				pending = nil
				fire = nil
				cfg, err := ReadConfig(cfile)
				if err != nil {
					slog.Error("config reload skipped", "error", err)
					continue
				}
				slog.Info("config file reloaded", "file", cfile)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher", "error", err)
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
