// Package deeplink delivers codex:// activations to the running client.
//
// The OS hands a link to a fresh process (the open-url command); that
// process drops it into a spool directory and exits. The running client
// watches the directory and turns each spooled file into one string on a
// channel.
package deeplink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const fileExt = ".link"

// Spool writes uri into dir for a running client to pick up. The file
// appears atomically under its final name.
func Spool(dir, uri string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}
	suffix, err := common.MakeRandHexString(8)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".incoming-*")
	if err != nil {
		return "", fmt.Errorf("spool link: %w", err)
	}
	if _, err := tmp.WriteString(strings.TrimSpace(uri)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("spool link: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("spool link: %w", err)
	}
	final := filepath.Join(dir, suffix+fileExt)
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("spool link: %w", err)
	}
	return final, nil
}

// Watcher turns spooled files into activations.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	log     logging.Logger
}

func NewWatcher(dir string, log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch spool directory %s: %w", dir, err)
	}
	return &Watcher{dir: dir, watcher: w, log: log.With("module", "deeplink")}, nil
}

// Run emits every link already in the spool, then each new one, until ctx
// is done. The returned channel is closed when Run stops.
func (w *Watcher) Run(ctx context.Context) <-chan string {
	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer w.watcher.Close()

		emit := func(path string) bool {
			uri, ok := w.take(path)
			if !ok {
				return true
			}
			select {
			case out <- uri:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, p := range w.backlog() {
			if !emit(p) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
					continue
				}
				if !emit(ev.Name) {
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn(ctx, "spool watcher error", "error", err)
			}
		}
	}()
	return out
}

func (w *Watcher) backlog() []string {
	matches, err := filepath.Glob(filepath.Join(w.dir, "*"+fileExt))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// take reads and deletes one spooled file. A second event for a file that
// is already consumed finds nothing and is skipped.
func (w *Watcher) take(path string) (string, bool) {
	if filepath.Ext(path) != fileExt {
		return "", false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if err := os.Remove(path); err != nil {
		w.log.Warn(context.Background(), "failed to remove spooled link", "path", path, "error", err)
	}
	uri := strings.TrimSpace(string(b))
	return uri, uri != ""
}
