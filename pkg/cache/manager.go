package cache

import (
	"log"
	"sync"

	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/logutil"
	"github.com/quillnotes/quill/pkg/note"
)

// Options configures a Manager.
type Options struct {
	// Capacity bounds the memory tier.
	Capacity int
	// Path locates the durable tier's database file. Empty disables the
	// durable tier.
	Path string
}

// DefaultCapacity is used when Options.Capacity is zero.
const DefaultCapacity = 1024

// Manager is the two-tier result cache. Reads consult the memory tier first
// and fall back to the durable tier, promoting hits. Writes go through to
// both tiers when the value serializes.
//
// While an edit session is active for a note, results depending on that note
// are served without staleness checking, so a half-typed edit does not churn
// every dependent directive. Committing the session invalidates everything
// that was served suppressed.
type Manager struct {
	mem     *lru
	durable *boltTier
	hasher  *hash.Hasher
	logger  *log.Logger

	mu        sync.Mutex
	session   note.ID
	inSession bool
	// suppressed collects slots served without a staleness check during the
	// current session.
	suppressed map[Slot]bool
}

// Open creates a Manager. With a non-empty Options.Path the durable tier is
// opened or created at that path.
func Open(opts Options) (*Manager, error) {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	m := &Manager{
		mem:        newLRU(capacity),
		hasher:     hash.NewHasher(),
		logger:     logutil.Discard,
		suppressed: make(map[Slot]bool),
	}
	if opts.Path != "" {
		t, err := openBolt(opts.Path)
		if err != nil {
			return nil, err
		}
		m.durable = t
	}
	return m, nil
}

// Close releases the durable tier.
func (m *Manager) Close() error {
	if m.durable != nil {
		return m.durable.Close()
	}
	return nil
}

// SetLogger directs the manager's diagnostics.
func (m *Manager) SetLogger(l *log.Logger) { m.logger = l }

// Hasher returns the hasher whose generation tracks the note set this cache
// serves.
func (m *Manager) Hasher() *hash.Hasher { return m.hasher }

// GetIfValid returns the cached result for the slot if it is present and not
// stale against the current store state.
func (m *Manager) GetIfValid(s Slot, store note.Store) (*Result, bool) {
	r, ok := m.get(s)
	if !ok {
		return nil, false
	}
	if m.suppressFor(s, r) {
		return r, true
	}
	if IsStale(r, store, m.hasher) {
		return nil, false
	}
	return r, true
}

// GetAny returns the cached result for the slot regardless of staleness.
// Mutating directives use it: re-running them on a cache formality would
// repeat their side effects.
func (m *Manager) GetAny(s Slot) (*Result, bool) {
	return m.get(s)
}

func (m *Manager) get(s Slot) (*Result, bool) {
	if r, ok := m.mem.Get(s); ok {
		return r, true
	}
	if m.durable == nil {
		return nil, false
	}
	r, ok := m.durable.Get(s)
	if !ok {
		return nil, false
	}
	m.mem.Put(s, r)
	return r, true
}

// Put stores a result in both tiers. Results whose value does not serialize
// stay in the memory tier.
func (m *Manager) Put(s Slot, r *Result) {
	m.mem.Put(s, r)
	if m.durable == nil || !Serializable(r) {
		return
	}
	if err := m.durable.Put(s, r); err != nil {
		m.logger.Printf("durable cache put: %v", err)
	}
}

// NoteChanged records that a note's content or metadata changed. Aggregate
// hashes are recomputed lazily; per-note slots of the changed note are
// dropped, except during an edit session for that very note.
func (m *Manager) NoteChanged(id note.ID) {
	m.hasher.NoteSetChanged()
	m.mu.Lock()
	suppress := m.inSession && m.session == id
	m.mu.Unlock()
	if suppress {
		return
	}
	m.dropNote(id)
}

// NoteRemoved records that a note was deleted.
func (m *Manager) NoteRemoved(id note.ID) {
	m.hasher.NoteSetChanged()
	m.dropNote(id)
}

func (m *Manager) dropNote(id note.ID) {
	m.mem.DeleteFunc(func(s Slot) bool { return s.NoteID == id })
	if m.durable != nil {
		if err := m.durable.DeleteNote(id); err != nil {
			m.logger.Printf("durable cache delete note: %v", err)
		}
	}
}

// ClearAll drops every entry from both tiers.
func (m *Manager) ClearAll() {
	m.mem.Clear()
	if m.durable != nil {
		if err := m.durable.ClearAll(); err != nil {
			m.logger.Printf("durable cache clear: %v", err)
		}
	}
}

// Invalidate drops one slot from both tiers.
func (m *Manager) Invalidate(s Slot) {
	m.mem.Delete(s)
	if m.durable != nil {
		if err := m.durable.Delete(s); err != nil {
			m.logger.Printf("durable cache delete: %v", err)
		}
	}
}

// BeginSession starts an edit session for a note. Only one session runs at a
// time; starting a new one commits nothing from the previous.
func (m *Manager) BeginSession(id note.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = id
	m.inSession = true
	m.suppressed = make(map[Slot]bool)
}

// EndSession ends the edit session. With commit true, every result that was
// served suppressed during the session is invalidated so the next read
// recomputes it; with commit false the suppressed results stand, since the
// edit was discarded.
func (m *Manager) EndSession(commit bool) {
	m.mu.Lock()
	suppressed := m.suppressed
	m.session = ""
	m.inSession = false
	m.suppressed = make(map[Slot]bool)
	m.mu.Unlock()
	if !commit {
		return
	}
	for s := range suppressed {
		m.Invalidate(s)
	}
}

// suppressFor reports whether the result should be served without a
// staleness check because it depends on the note under edit, and records the
// slot for end-of-session invalidation.
func (m *Manager) suppressFor(s Slot, r *Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inSession {
		return false
	}
	id := m.session
	if s.NoteID != id && !r.Deps.Names[id] && !r.Deps.Bodies[id] {
		return false
	}
	m.suppressed[s] = true
	return true
}

// Len returns the number of entries in the memory tier.
func (m *Manager) Len() int { return m.mem.Len() }
