package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/matching"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// WSHandler streams match results for a filter as the contractor mirror
// changes.
type WSHandler struct {
	sessions services.SessionService
	search   services.SearchService
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds the live search handler. allowedOrigins lists the
// browser origins that may connect; "*" admits any origin and an empty list
// admits only same-host requests.
func NewWSHandler(sessions services.SessionService, search services.SearchService, allowedOrigins []string, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WSHandler{
		sessions: sessions,
		search:   search,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// originChecker returns nil for an empty list so the upgrader falls back to
// its same-host check.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// client -> server: {"type":"search","spec":{...}} | {"type":"stop"}
type wsClientMsg struct {
	Type string        `json:"type"`
	Spec matching.Spec `json:"spec"`
}

// server -> client
type wsServerMsg struct {
	Type    string                  `json:"type"` // matches | error
	Outcome *services.SearchOutcome `json:"outcome,omitempty"`
	Code    utils.Code              `json:"code,omitempty"`
	Message string                  `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writePing() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (w *wsConn) writeErr(code utils.Code, msg string) error {
	return w.writeJSON(wsServerMsg{Type: "error", Code: code, Message: msg})
}

func (h *WSHandler) Search(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	store, err := h.sessions.Acquire(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	entry := h.log.WithField("identity", identity)
	entry.Info("live search connected")
	defer entry.Info("live search disconnected")

	// reader: WS -> latest spec
	specs := make(chan matching.Spec, 1)
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeErr(utils.CodeInvalidArgument, "invalid json")
				continue
			}

			switch msg.Type {
			case "search":
				// keep only the newest spec
				select {
				case <-specs:
				default:
				}
				specs <- msg.Spec
			case "stop":
				_ = wc.c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			default:
				_ = wc.writeErr(utils.CodeInvalidArgument, "unknown message type")
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	var (
		spec    *matching.Spec
		lastRev uint64
	)

	// writer: store revisions -> WS
	for {
		// taken before the revision check so no revision is missed
		changed := store.Changed()

		if spec != nil {
			if snap := store.Snapshot(); snap.Revision != lastRev {
				out := h.search.Evaluate(snap, *spec)
				lastRev = out.Revision
				if err := wc.writeJSON(wsServerMsg{Type: "matches", Outcome: out}); err != nil {
					return
				}
				continue
			}
		}

		select {
		case <-ctx.Done():
			return

		case sp := <-specs:
			out, err := h.search.Search(ctx, identity, sp)
			if err != nil {
				_ = wc.writeErr(utils.CodeOf(err), "search failed")
				continue
			}
			spec = &out.Spec
			lastRev = out.Revision
			if err := wc.writeJSON(wsServerMsg{Type: "matches", Outcome: out}); err != nil {
				return
			}

		case <-changed:
			// re-checked at the top of the loop

		case <-ticker.C:
			if err := wc.writePing(); err != nil {
				return
			}
			// keeps the session alive; a swept session comes back as a new store
			next, err := h.sessions.Acquire(ctx, identity)
			if err != nil {
				entry.WithError(err).Warn("live search lost its session")
				return
			}
			if next != store {
				store = next
				lastRev = 0
			}
		}
	}
}
