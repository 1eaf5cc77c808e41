package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the write bursts editors and cert managers
// produce when replacing a key pair.
const DefaultDebounce = 500 * time.Millisecond

// Watcher serves the server key pair and reloads it when either file
// changes. A failed reload keeps the previous certificate.
type Watcher struct {
	certFile string
	keyFile  string
	debounce time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher loads the key pair. Call Start or StartAsync to follow changes.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	// Directories, not files: atomic renames replace the watched inode.
	dirs := map[string]struct{}{filepath.Dir(certFile): {}, filepath.Dir(keyFile): {}}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	w.watcher = fw
	return w, nil
}

// Start follows file changes until Stop is called.
func (w *Watcher) Start() {
	certPath, _ := filepath.Abs(w.certFile)
	keyPath, _ := filepath.Abs(w.keyFile)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name, _ := filepath.Abs(event.Name)
			if name != certPath && name != keyPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := w.reload(); err != nil {
				w.logger.Error("certificate reload failed, keeping previous",
					"cert_file", w.certFile,
					"error", err,
				)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("certificate watcher error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// GetCertificate implements tls.Config.GetCertificate.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cert, nil
}

// NotAfter returns the expiry of the current leaf certificate.
func (w *Watcher) NotAfter() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.cert == nil || w.cert.Leaf == nil {
		return time.Time{}
	}
	return w.cert.Leaf.NotAfter
}

// ServerTLSConfig returns a server config backed by the watcher.
func (w *Watcher) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: w.GetCertificate,
	}
}

func (w *Watcher) reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
		}
	}

	w.mu.Lock()
	w.cert = &cert
	w.mu.Unlock()

	attrs := []any{"cert_file", w.certFile}
	if cert.Leaf != nil {
		attrs = append(attrs, "not_after", cert.Leaf.NotAfter)
		if time.Until(cert.Leaf.NotAfter) < 7*24*time.Hour {
			w.logger.Warn("certificate expires soon", attrs...)
		}
	}
	w.logger.Info("certificate loaded", attrs...)
	return nil
}
