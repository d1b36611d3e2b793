package router

import (
	"sync"

	"github.com/entrhq/stylebot/pkg/types"
	"github.com/google/uuid"
)

// Responder is the single-use reply slot of one request. The first Send
// wins; later calls are logged and ignored.
type Responder struct {
	id   string
	name types.RequestName

	response  chan *types.Response
	mu        sync.Mutex
	sent      bool
	closed    bool
	closeOnce sync.Once
}

// NewResponder creates the reply slot for one inbound request.
func NewResponder() *Responder {
	return &Responder{
		id:       uuid.New().String(),
		response: make(chan *types.Response, 1),
	}
}

func (r *Responder) bind(name types.RequestName) {
	r.mu.Lock()
	r.name = name
	r.mu.Unlock()
}

// ID returns the correlation id used in log lines for this request.
func (r *Responder) ID() string {
	return r.id
}

// Send delivers resp to the caller. It reports whether resp was accepted;
// repeated sends and sends after Close are contract violations.
func (r *Responder) Send(resp *types.Response) bool {
	if resp == nil {
		resp = types.NewAckResponse()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sent || r.closed {
		debugLog.Warnf("[%s] Dropping extra response to %s: already answered", r.id, r.name)
		return false
	}
	r.sent = true
	r.response <- resp
	return true
}

// Responded reports whether a response has been sent.
func (r *Responder) Responded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

// Result yields the response once it is sent. The channel is closed without
// a value for fire-and-forget requests and dropped messages.
func (r *Responder) Result() <-chan *types.Response {
	return r.response
}

// Close ends the exchange. It is safe to call more than once.
func (r *Responder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.response)
		r.mu.Unlock()
	})
}
