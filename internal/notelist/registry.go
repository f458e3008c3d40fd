package notelist

import (
	"sync"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"go.uber.org/zap"
)

// Registry keeps one Controller per session. A controller is mounted the
// first time the gated dashboard is rendered for a session and unmounted on
// sign-out.
type Registry struct {
	api      API
	pageSize int
	logger   *zap.Logger

	mu          sync.Mutex
	controllers map[string]*mounted
	now         func() time.Time
}

type mounted struct {
	ctrl     *Controller
	lastUsed time.Time
}

func NewRegistry(api API, pageSize int, logger *zap.Logger) *Registry {
	return &Registry{
		api:         api,
		pageSize:    pageSize,
		logger:      logger,
		controllers: make(map[string]*mounted),
		now:         time.Now,
	}
}

// Mount returns the session's controller, creating it if needed.
func (r *Registry) Mount(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.controllers[sessionID]
	if !ok {
		m = &mounted{ctrl: New(r.api, r.pageSize, r.logger.With(zap.String(logger.FieldSessionID, sessionID)))}
		r.controllers[sessionID] = m
	}
	m.lastUsed = r.now()
	return m.ctrl
}

func (r *Registry) Unmount(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, sessionID)
}

// PruneIdle unmounts controllers not used since before cutoff. Sessions that
// expire without an explicit sign-out are released this way.
func (r *Registry) PruneIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.controllers {
		if m.lastUsed.Before(cutoff) {
			delete(r.controllers, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
