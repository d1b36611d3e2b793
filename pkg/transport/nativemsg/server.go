package nativemsg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/router"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("nativemsg")

// Envelope is an inbound message: either a request plus the context that
// sent it, or a tab lifecycle event forwarded by the extension. ID
// correlates the reply and is chosen by the extension. Forwarded
// tab_activated events should carry the tab snapshot, since tabs opened
// before the host connected have no earlier update to look it up from.
type Envelope struct {
	ID       string          `json:"id,omitempty"`
	Sender   types.Sender    `json:"sender"`
	Request  json.RawMessage `json:"request,omitempty"`
	TabEvent *types.TabEvent `json:"tabEvent,omitempty"`
}

// Reply answers the envelope with the same ID.
type Reply struct {
	ID       string          `json:"id"`
	Response *types.Response `json:"response"`
}

// Notification is pushed to the extension without a request, e.g. to
// redraw the context menu.
type Notification struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Handler processes one raw request.
type Handler interface {
	HandleRaw(ctx context.Context, data []byte, sender types.Sender, resp *router.Responder)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, data []byte, sender types.Sender, resp *router.Responder)

// HandleRaw calls f.
func (f HandlerFunc) HandleRaw(ctx context.Context, data []byte, sender types.Sender, resp *router.Responder) {
	f(ctx, data, sender, resp)
}

// TabEventFunc receives tab events in the order they were read.
type TabEventFunc func(ctx context.Context, event *types.TabEvent)

// Server reads envelopes from in and writes replies and notifications to
// out. Requests are handled concurrently; writes are serialized.
type Server struct {
	in      io.Reader
	out     io.Writer
	handler Handler
	maxSize uint32
	onTab   TabEventFunc

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// NewServer creates a server. A zero maxSize means DefaultMaxMessageSize.
func NewServer(in io.Reader, out io.Writer, handler Handler, maxSize uint32) *Server {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Server{
		in:      in,
		out:     out,
		handler: handler,
		maxSize: maxSize,
	}
}

// OnTabEvent registers fn for tab events. Events are delivered on the read
// goroutine, so fn must not block.
func (s *Server) OnTabEvent(fn TabEventFunc) {
	s.onTab = fn
}

// Serve reads until in is exhausted, then waits for in-flight requests.
// A clean end of input returns nil.
func (s *Server) Serve(ctx context.Context) error {
	defer s.wg.Wait()

	for {
		data, err := ReadMessage(s.in, s.maxSize)
		if errors.Is(err, io.EOF) {
			debugLog.Infof("Input closed, stopping")
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			debugLog.Warnf("Dropping malformed envelope: %v", err)
			continue
		}

		if env.TabEvent != nil {
			s.dispatchTabEvent(ctx, env.TabEvent)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, env)
		}()
	}
}

func (s *Server) dispatchTabEvent(ctx context.Context, event *types.TabEvent) {
	if s.onTab == nil {
		debugLog.Debugf("No tab event subscriber, dropping %s for tab %d", event.Type, event.TabID)
		return
	}
	s.onTab(ctx, event)
}

func (s *Server) handle(ctx context.Context, env Envelope) {
	resp := router.NewResponder()
	s.handler.HandleRaw(ctx, env.Request, env.Sender, resp)

	response, ok := <-resp.Result()
	if !ok {
		return
	}
	if env.ID == "" {
		debugLog.Warnf("[%s] Response has no envelope id to answer", resp.ID())
		return
	}
	if err := s.write(Reply{ID: env.ID, Response: response}); err != nil {
		debugLog.Errorf("[%s] Failed to write reply: %v", resp.ID(), err)
	}
}

// Notify pushes an event to the extension.
func (s *Server) Notify(event string, payload interface{}) error {
	return s.write(Notification{Event: event, Payload: payload})
}

func (s *Server) write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return WriteMessage(s.out, data)
}
