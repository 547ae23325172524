// Package datasets owns the in-memory datasets the server works on. A
// dataset is a normalized row set plus the session state around it: the
// derived filter facets and the single active filter.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/analysis"
	"github.com/vinodismyname/sheetlens/internal/normalize"
	"github.com/vinodismyname/sheetlens/internal/sheets"
	"github.com/vinodismyname/sheetlens/internal/table"
)

var (
	// ErrHandleNotFound indicates an unknown or expired dataset ID.
	ErrHandleNotFound = errors.New("datasets: dataset not found")
	// ErrUnknownFacet indicates a filter column that is not a facet.
	ErrUnknownFacet = errors.New("datasets: column is not a filter facet")
	// ErrUnsupportedFormat indicates a path the loader cannot decode.
	ErrUnsupportedFormat = errors.New("datasets: unsupported format")
)

// Handle represents a loaded dataset paired with metadata for TTL eviction.
type Handle struct {
	ID        string
	LoadedAt  time.Time
	ExpiresAt time.Time

	source    string
	profile   string
	mode      string
	sheet     string
	sheets    []string
	truncated bool
	rows      table.Dataset
	facets    []analysis.Facet
	filter    analysis.Filter
	version   int64
	mu        sync.RWMutex
}

// View is a consistent read of a handle. Row slices are replaced wholesale on
// reload and never mutated in place, so a View stays valid after the handle
// changes.
type View struct {
	ID        string
	Source    string
	Profile   string
	Mode      string
	Sheet     string
	Sheets    []string
	Truncated bool
	Rows      table.Dataset
	Facets    []analysis.Facet
	Filter    analysis.Filter
	Version   int64
	LoadedAt  time.Time
}

// Subset returns the rows matching the active filter.
func (v View) Subset() table.Dataset {
	return analysis.Apply(v.Rows, v.Filter)
}

// Options converts the view's session state into analysis options.
func (v View) Options() analysis.Options {
	return analysis.Options{Filter: v.Filter, Mode: v.Mode}
}

func (h *Handle) view() View {
	return View{
		ID:        h.ID,
		Source:    h.source,
		Profile:   h.profile,
		Mode:      h.mode,
		Sheet:     h.sheet,
		Sheets:    h.sheets,
		Truncated: h.truncated,
		Rows:      h.rows,
		Facets:    h.facets,
		Filter:    h.filter,
		Version:   h.version,
		LoadedAt:  h.LoadedAt,
	}
}

// DatasetGate coordinates capacity for open datasets (backed by runtime.Controller).
type DatasetGate interface {
	AcquireDataset(ctx context.Context) error
	ReleaseDataset()
}

// PathValidator abstracts filesystem path validation. Implementations should
// return a canonical absolute path if allowed, or an error when denied.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// LoadFunc decodes a spreadsheet file into raw rows.
type LoadFunc func(ctx context.Context, path string, opts sheets.Options) (sheets.Result, error)

// LoadRequest describes a file load. A non-empty ReplaceID reloads into an
// existing dataset instead of registering a new one.
type LoadRequest struct {
	Path          string
	Profile       string
	Mode          string
	AllowedSheets []string
	MaxRows       int
	ReplaceID     string
}

// Manager provides lifecycle hooks for loading and closing datasets and a
// TTL-bearing handle cache.
type Manager struct {
	mu           sync.RWMutex
	handles      map[string]*Handle
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         DatasetGate
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
	validator    PathValidator
	load         LoadFunc
	log          zerolog.Logger
}

// NewManager constructs a lifecycle manager with TTL-bearing handle cache.
// Pass ttl or cleanupEvery <= 0 to use defaults from config.
// Gate can be nil for tests; clock defaults to time.Now when nil.
func NewManager(ttl, cleanupEvery time.Duration, gate DatasetGate, clock func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultDatasetIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultDatasetCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		handles:      make(map[string]*Handle),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		gate:         gate,
		stopCh:       make(chan struct{}),
		load:         sheets.Load,
		log:          zerolog.Nop(),
	}
}

// SetValidator installs the path validator consulted before every load.
func (m *Manager) SetValidator(v PathValidator) { m.validator = v }

// SetLoader replaces the file decoder.
func (m *Manager) SetLoader(fn LoadFunc) { m.load = fn }

// SetLogger sets the logger used for lifecycle events.
func (m *Manager) SetLogger(l zerolog.Logger) { m.log = l.With().Str("component", "datasets").Logger() }

// Start launches periodic eviction of expired handles.
func (m *Manager) Start() {
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and drops all open handles.
func (m *Manager) Close(ctx context.Context) error {
	close(m.stopCh)
	done := make(chan struct{})
	go func() { m.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range m.handles {
		// wait for in-flight readers
		h.mu.Lock()
		h.rows = nil
		h.mu.Unlock()
		delete(m.handles, id)
		m.release()
	}
	return nil
}

// Load decodes and normalizes the file at req.Path and registers it. When
// req.ReplaceID names a live dataset its rows are swapped in one step and its
// filter is reset; a failed reload leaves the previous rows untouched.
func (m *Manager) Load(ctx context.Context, req LoadRequest) (View, error) {
	var existing *Handle
	if req.ReplaceID != "" {
		h, ok := m.lookup(req.ReplaceID)
		if !ok {
			return View{}, ErrHandleNotFound
		}
		existing = h
	} else if err := m.acquire(ctx); err != nil {
		return View{}, err
	}
	fail := func(err error) (View, error) {
		if existing == nil {
			m.release()
		}
		return View{}, err
	}

	if !sheets.IsSupported(req.Path) {
		return fail(fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(req.Path)))
	}
	path := req.Path
	if m.validator != nil {
		canonical, err := m.validator.ValidateOpenPath(path)
		if err != nil {
			return fail(err)
		}
		path = canonical
	}

	res, err := m.load(ctx, path, sheets.Options{AllowedSheets: req.AllowedSheets, MaxRows: req.MaxRows})
	if err != nil {
		return fail(err)
	}
	c := content{
		source:    path,
		profile:   req.Profile,
		mode:      req.Mode,
		sheet:     res.Sheet,
		sheets:    res.Sheets,
		truncated: res.Truncated,
		raw:       res.Rows,
	}
	if existing != nil {
		v := m.replace(existing, c)
		m.log.Info().Str("dataset_id", v.ID).Str("sheet", v.Sheet).Int("rows", len(v.Rows)).Msg("dataset reloaded")
		return v, nil
	}
	v := m.register(c)
	m.log.Info().Str("dataset_id", v.ID).Str("sheet", v.Sheet).Int("rows", len(v.Rows)).Msg("dataset loaded")
	return v, nil
}

// AdoptRequest registers rows that were decoded elsewhere.
type AdoptRequest struct {
	Name    string
	Profile string
	Mode    string
	Rows    table.Dataset
}

// Adopt normalizes and registers already-decoded rows as a managed dataset.
func (m *Manager) Adopt(ctx context.Context, req AdoptRequest) (View, error) {
	if err := m.acquire(ctx); err != nil {
		return View{}, err
	}
	return m.register(content{source: req.Name, profile: req.Profile, mode: req.Mode, raw: req.Rows}), nil
}

type content struct {
	source    string
	profile   string
	mode      string
	sheet     string
	sheets    []string
	truncated bool
	raw       table.Dataset
}

func (m *Manager) register(c content) View {
	rows := normalize.Dataset(c.raw)
	now := m.clock()
	h := &Handle{
		ID:        uuid.NewString(),
		LoadedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		source:    c.source,
		profile:   c.profile,
		mode:      c.mode,
		sheet:     c.sheet,
		sheets:    c.sheets,
		truncated: c.truncated,
		rows:      rows,
		facets:    analysis.Facets(rows),
	}
	v := h.view()
	m.mu.Lock()
	m.handles[h.ID] = h
	m.mu.Unlock()
	return v
}

func (m *Manager) replace(h *Handle, c content) View {
	rows := normalize.Dataset(c.raw)
	facets := analysis.Facets(rows)
	now := m.clock()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = c.source
	h.profile = c.profile
	h.mode = c.mode
	h.sheet = c.sheet
	h.sheets = c.sheets
	h.truncated = c.truncated
	h.rows = rows
	h.facets = facets
	h.filter = analysis.Filter{}
	h.version++
	h.LoadedAt = now
	h.ExpiresAt = now.Add(m.ttl)
	return h.view()
}

// Get returns a view of the dataset when present and refreshes its TTL.
func (m *Manager) Get(id string) (View, bool) {
	h, ok := m.touch(id)
	if !ok {
		return View{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.view(), true
}

// WithRead obtains a shared read lock for the dataset and executes fn.
func (m *Manager) WithRead(id string, fn func(View) error) error {
	h, ok := m.touch(id)
	if !ok {
		return ErrHandleNotFound
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.view())
}

// SetFilter updates the dataset's filter. Selecting a different column
// clears the previous value before value is applied; an empty column clears
// the filter entirely. Only facet columns may be selected.
func (m *Manager) SetFilter(id, column, value string) (View, error) {
	h, ok := m.touch(id)
	if !ok {
		return View{}, ErrHandleNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.filter
	switch {
	case column == "":
		next = analysis.Filter{}
	case column != next.Column:
		if _, ok := analysis.FacetFor(h.facets, column); !ok {
			return View{}, fmt.Errorf("%w: %s", ErrUnknownFacet, column)
		}
		next = next.WithColumn(column).WithValue(value)
	default:
		next = next.WithValue(value)
	}
	if next != h.filter {
		h.filter = next
		h.version++
	}
	return h.view(), nil
}

// CloseHandle removes a dataset by ID, releasing capacity via the gate.
func (m *Manager) CloseHandle(ctx context.Context, id string) error {
	m.mu.Lock()
	h, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrHandleNotFound
	}
	// Ensure no other readers are inside the dataset.
	h.mu.Lock()
	h.rows = nil
	h.mu.Unlock()
	m.release()
	zerolog.Ctx(ctx).Debug().Str("dataset_id", id).Msg("dataset closed")
	return nil
}

// EvictExpired scans for expired handles and drops them.
func (m *Manager) EvictExpired() {
	now := m.clock()
	var expired []*Handle

	m.mu.RLock()
	for _, h := range m.handles {
		if h.Expired(now) {
			expired = append(expired, h)
		}
	}
	m.mu.RUnlock()

	for _, h := range expired {
		m.mu.Lock()
		_, live := m.handles[h.ID]
		delete(m.handles, h.ID)
		m.mu.Unlock()
		if !live {
			continue
		}
		h.mu.Lock()
		h.rows = nil
		h.mu.Unlock()
		m.release()
		m.log.Debug().Str("dataset_id", h.ID).Msg("dataset evicted")
	}
}

// Count returns the current number of cached handles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

func (m *Manager) lookup(id string) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[id]
	return h, ok
}

// touch looks up a handle and refreshes its TTL (idle timeout semantics).
func (m *Manager) touch(id string) (*Handle, bool) {
	h, ok := m.lookup(id)
	if !ok {
		return nil, false
	}
	now := m.clock()
	h.mu.Lock()
	h.ExpiresAt = now.Add(m.ttl)
	h.mu.Unlock()
	return h, true
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	return m.gate.AcquireDataset(ctx)
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseDataset()
}

// Expired reports whether the handle has reached its TTL.
func (h *Handle) Expired(now time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return now.After(h.ExpiresAt)
}
