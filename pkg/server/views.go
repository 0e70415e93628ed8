package server

import (
	"strings"
	"sync"

	"github.com/saint0x/pullmate/pkg/compare"
)

// viewRegistry keeps one comparison view per session and repository
type viewRegistry struct {
	mu    sync.Mutex
	views map[string]*compare.View
}

func newViewRegistry() *viewRegistry {
	return &viewRegistry{views: make(map[string]*compare.View)}
}

func viewKey(sessionID, owner, repo string) string {
	return sessionID + "/" + owner + "/" + repo
}

func (r *viewRegistry) get(key string) (*compare.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[key]
	return v, ok
}

// put stores v unless another view won the race, in which case v is closed
// and the existing one returned
func (r *viewRegistry) put(key string, v *compare.View) *compare.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.views[key]; ok {
		v.Close()
		return existing
	}
	r.views[key] = v
	return v
}

func (r *viewRegistry) closeSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := sessionID + "/"
	for key, v := range r.views {
		if strings.HasPrefix(key, prefix) {
			v.Close()
			delete(r.views, key)
		}
	}
}

func (r *viewRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, v := range r.views {
		v.Close()
		delete(r.views, key)
	}
}

func (r *viewRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
