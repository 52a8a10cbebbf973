// Package watch monitors offer and invoice folders and triggers a
// reconciliation whenever an invoice arrives for a known offer.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/offer-reconciler/internal/document"
)

// ErrNoFolders indicates that neither an offers nor an invoices folder was configured.
var ErrNoFolders = errors.New("no folders to watch")

// Handler reconciles one offer against all invoices currently on disk for it.
type Handler func(ctx context.Context, offer string, invoices []string) error

// Options configures a Watcher.
type Options struct {
	Logger         *slog.Logger
	OffersFolder   string
	InvoicesFolder string
	Debounce       time.Duration // quiet period before an offer is reconciled
	PendingExpiry  time.Duration // offers without activity are forgotten after this
	CheckInterval  time.Duration // how often expired offers are swept
}

type pendingOffer struct {
	seen time.Time
	path string
}

// Watcher pairs incoming invoices with pending offers by file name.
type Watcher struct {
	now     func() time.Time
	handler Handler
	logger  *slog.Logger
	pending map[string]pendingOffer // by offer stem
	timers  map[string]*time.Timer
	fire    chan string
	done    chan struct{}
	ready   chan struct{}
	opts    Options
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// New creates a watcher. Missing folders fall back to each other so a single
// drop folder can hold both offers and invoices.
func New(opts Options, handler Handler) (*Watcher, error) {
	if opts.OffersFolder == "" && opts.InvoicesFolder == "" {
		return nil, ErrNoFolders
	}
	if opts.OffersFolder == "" {
		opts.OffersFolder = opts.InvoicesFolder
	}
	if opts.InvoicesFolder == "" {
		opts.InvoicesFolder = opts.OffersFolder
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.PendingExpiry <= 0 {
		opts.PendingExpiry = 24 * time.Hour
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Watcher{
		now:     time.Now,
		handler: handler,
		logger:  opts.Logger,
		pending: make(map[string]pendingOffer),
		timers:  make(map[string]*time.Timer),
		fire:    make(chan string),
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
		opts:    opts,
	}, nil
}

// Ready is closed once the folders are being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is canceled. Reconciliations still in flight are
// awaited before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	for _, dir := range w.folders() {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	if err := w.scan(); err != nil {
		return err
	}

	ticker := time.NewTicker(w.opts.CheckInterval)
	defer ticker.Stop()
	defer func() {
		w.stopTimers()
		close(w.done)
		w.wg.Wait()
	}()

	w.logger.Info("Started monitoring folders",
		"offers", w.opts.OffersFolder,
		"invoices", w.opts.InvoicesFolder)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped folder monitoring")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.handleFile(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)
		case stem := <-w.fire:
			w.dispatch(ctx, stem)
		case <-ticker.C:
			w.expire()
		}
	}
}

// Pending returns the stems of offers waiting for invoices.
func (w *Watcher) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	stems := make([]string, 0, len(w.pending))
	for stem := range w.pending {
		stems = append(stems, stem)
	}
	sort.Strings(stems)
	return stems
}

func (w *Watcher) folders() []string {
	if filepath.Clean(w.opts.OffersFolder) == filepath.Clean(w.opts.InvoicesFolder) {
		return []string{w.opts.OffersFolder}
	}
	return []string{w.opts.OffersFolder, w.opts.InvoicesFolder}
}

// scan registers offers already present in the offers folder.
func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.opts.OffersFolder)
	if err != nil {
		return fmt.Errorf("failed to scan offers folder: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.opts.OffersFolder, entry.Name())
		if stem, ok := document.OfferStem(path); ok {
			w.registerOffer(stem, path)
		}
	}
	return nil
}

func (w *Watcher) handleFile(path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	if stem, ok := document.OfferStem(path); ok {
		w.registerOffer(stem, path)
		if len(w.invoicesFor(stem)) > 0 {
			w.schedule(stem)
		}
		return
	}

	if !document.IsInvoice(path) {
		return
	}

	stem, ok := document.MatchOffer(path, w.Pending())
	if !ok {
		w.logger.Debug("Invoice has no pending offer", "path", path)
		return
	}
	w.touch(stem)
	w.schedule(stem)
}

func (w *Watcher) registerOffer(stem, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.pending[stem]; !exists {
		w.logger.Info("Offer registered", "stem", stem, "path", path)
	}
	w.pending[stem] = pendingOffer{path: path, seen: w.now()}
}

func (w *Watcher) touch(stem string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[stem]; ok {
		p.seen = w.now()
		w.pending[stem] = p
	}
}

// schedule (re)starts the debounce timer for stem.
func (w *Watcher) schedule(stem string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[stem]; ok {
		t.Stop()
	}
	w.timers[stem] = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.fire <- stem:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for stem, t := range w.timers {
		t.Stop()
		delete(w.timers, stem)
	}
}

func (w *Watcher) dispatch(ctx context.Context, stem string) {
	w.mu.Lock()
	offer, ok := w.pending[stem]
	delete(w.timers, stem)
	w.mu.Unlock()
	if !ok {
		return
	}

	invoices := w.invoicesFor(stem)
	if len(invoices) == 0 {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.handler(ctx, offer.path, invoices); err != nil {
			w.logger.Error("Reconciliation failed", "offer", offer.path, "invoices", len(invoices), "error", err)
			return
		}
		w.logger.Info("Compared offer with invoices", "offer", offer.path, "invoices", len(invoices))
	}()
}

// invoicesFor lists the invoices on disk that belong to stem. Each invoice
// belongs to the longest pending stem that prefixes its name.
func (w *Watcher) invoicesFor(stem string) []string {
	entries, err := os.ReadDir(w.opts.InvoicesFolder)
	if err != nil {
		w.logger.Warn("Failed to list invoices", "folder", w.opts.InvoicesFolder, "error", err)
		return nil
	}

	stems := w.Pending()
	var invoices []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.opts.InvoicesFolder, entry.Name())
		if !document.IsInvoice(path) {
			continue
		}
		if owner, ok := document.MatchOffer(path, stems); ok && owner == stem {
			invoices = append(invoices, path)
		}
	}
	return invoices
}

// expire forgets offers that saw no activity within the pending expiry.
func (w *Watcher) expire() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for stem, p := range w.pending {
		if now.Sub(p.seen) > w.opts.PendingExpiry {
			delete(w.pending, stem)
			w.logger.Info("Removed expired offer", "stem", stem, "path", p.path)
		}
	}
}
