package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must exceed pingInterval
	maxInboundSize = 512              // clients only send pongs
	sessionBuffer  = 256
)

// session is one upgraded WebSocket connection. Anonymous sessions have
// user == uuid.Nil and receive broadcasts only.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte
	user uuid.UUID
}

// targeted pairs a payload with its recipient for per-user delivery.
type targeted struct {
	user uuid.UUID
	data []byte
}

// Hub fans server events out to WebSocket sessions: listing updates and
// the periodic feed go to everyone, notifications go to the sessions of
// one user. Run must be started as a goroutine before ServeWs is wired.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*session]struct{}
	byUser   map[uuid.UUID]map[*session]struct{}

	broadcast chan []byte
	direct    chan targeted
	attach    chan *session
	detach    chan *session

	// Empty secret means token query params are ignored and every
	// session is anonymous.
	jwtSecret []byte

	upgrader websocket.Upgrader
}

// NewHub builds a hub. allowedOrigins==nil accepts any Origin header,
// which is the development posture.
func NewHub(jwtSecret []byte, allowedOrigins []string) *Hub {
	return &Hub{
		sessions:  make(map[*session]struct{}),
		byUser:    make(map[uuid.UUID]map[*session]struct{}),
		broadcast: make(chan []byte, 512),
		direct:    make(chan targeted, 512),
		attach:    make(chan *session),
		detach:    make(chan *session),
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Run is the hub event loop. Call once, as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.attach:
			h.add(s)
		case s := <-h.detach:
			h.remove(s)
		case msg := <-h.broadcast:
			h.fanout(msg)
		case t := <-h.direct:
			h.deliver(t)
		}
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
	if s.user != uuid.Nil {
		set := h.byUser[s.user]
		if set == nil {
			set = make(map[*session]struct{})
			h.byUser[s.user] = set
		}
		set[s] = struct{}{}
	}
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	if s.user != uuid.Nil {
		set := h.byUser[s.user]
		delete(set, s)
		if len(set) == 0 {
			delete(h.byUser, s.user)
		}
	}
	close(s.out)
}

func (h *Hub) fanout(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		select {
		case s.out <- msg:
		default:
			// Slow consumer: drop this message for this session. A truly
			// stalled connection is caught by the write deadline.
		}
	}
}

func (h *Hub) deliver(t targeted) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.byUser[t.user] {
		select {
		case s.out <- t.data:
		default:
		}
	}
}

// ConnectedCount reports the number of open sessions.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeWs upgrades the request, resolves the optional ?token= JWT to a
// user id, and starts the session pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws.ServeWs: upgrade failed: %v", err)
		return
	}

	var user uuid.UUID
	if token := r.URL.Query().Get("token"); token != "" && len(h.jwtSecret) > 0 {
		user = h.userFromToken(token)
	}

	s := &session{
		hub:  h,
		conn: conn,
		out:  make(chan []byte, sessionBuffer),
		user: user,
	}
	h.attach <- s

	go s.writePump()
	go s.readPump()
}

// userFromToken returns the subject UUID of a valid HMAC-signed token,
// or uuid.Nil, which downgrades the session to anonymous.
func (h *Hub) userFromToken(raw string) uuid.UUID {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil
	}
	sub, _ := claims.GetSubject()
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// writePump owns all writes on the connection: queued messages plus the
// keepalive pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump exists to service pongs and to notice the peer going away.
// The protocol is server-push only, so inbound frames are discarded.
func (s *session) readPump() {
	defer func() {
		s.hub.detach <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws.readPump: unexpected close for user %s: %v", s.user, err)
			}
			return
		}
	}
}

// BroadcastListingUpdate pushes one listing's state change to all sessions.
func (h *Hub) BroadcastListingUpdate(summary domain.ListingSummary) {
	h.broadcastJSON(ListingUpdateMessage{
		Type:      MsgTypeListingUpdate,
		Listing:   summary,
		Timestamp: time.Now().UTC(),
	})
}

// BroadcastListingFeed pushes the periodic active-listing snapshot.
func (h *Hub) BroadcastListingFeed(listings []domain.ListingSummary) {
	h.broadcastJSON(ListingFeedMessage{
		Type:      MsgTypeListingFeed,
		Listings:  listings,
		Timestamp: time.Now().UTC(),
	})
}

// SendNotification delivers a feed notification to one user's sessions.
func (h *Hub) SendNotification(n *domain.Notification) {
	data, err := json.Marshal(NotificationMessage{
		Type:         MsgTypeNotification,
		Notification: n,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		log.Printf("ws.Hub: marshal error: %v", err)
		return
	}
	select {
	case h.direct <- targeted{user: n.UserID, data: data}:
	default:
		log.Printf("ws.Hub: direct channel full, notification dropped")
	}
}

func (h *Hub) broadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws.Hub: marshal error: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("ws.Hub: broadcast channel full, message dropped")
	}
}
