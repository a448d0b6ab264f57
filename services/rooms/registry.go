package rooms

import "sync"

// Session is one live transport connection for an identity.
type Session interface {
	ID() string
	Emit(event string, payload map[string]interface{})
}

// PresenceWatcher gets told when an identity's first session appears or
// its last session vanishes. The directory implements this to trigger the
// disconnect path of the room holding that identity.
type PresenceWatcher interface {
	OnOnline(identity string)
	OnOffline(identity string)
}

/*
 * Registry maps an authenticated identity to its live sessions. It is a
 * pure presence table: no game knowledge, safe for concurrent use from
 * any number of transport handlers. Watcher callbacks run outside the
 * lock so they may re-enter the registry.
 */
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Session
	watcher  PresenceWatcher
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]map[string]Session)}
}

// SetWatcher wires the presence watcher. Call before traffic starts.
func (r *Registry) SetWatcher(w PresenceWatcher) {
	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
}

func (r *Registry) Register(identity string, s Session) {
	r.mu.Lock()
	set, ok := r.sessions[identity]
	if !ok {
		set = make(map[string]Session)
		r.sessions[identity] = set
	}
	wasOffline := len(set) == 0
	set[s.ID()] = s
	w := r.watcher
	r.mu.Unlock()

	if wasOffline && w != nil {
		w.OnOnline(identity)
	}
}

func (r *Registry) Unregister(identity, sessionID string) {
	r.mu.Lock()
	set, ok := r.sessions[identity]
	if ok {
		delete(set, sessionID)
	}
	nowOffline := ok && len(set) == 0
	if nowOffline {
		delete(r.sessions, identity)
	}
	w := r.watcher
	r.mu.Unlock()

	if nowOffline && w != nil {
		w.OnOffline(identity)
	}
}

func (r *Registry) SessionsFor(identity string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions[identity]))
	for _, s := range r.sessions[identity] {
		out = append(out, s)
	}
	return out
}

func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[identity]) > 0
}
