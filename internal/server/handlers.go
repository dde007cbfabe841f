package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"royalletters/internal/config"
	"royalletters/internal/engine"
	"royalletters/internal/lobby"
	"royalletters/internal/peer"
	qr "royalletters/internal/qrcode"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Room ties a lobby's hub to the host that owns it.
type Room struct {
	ID   string
	Hub  *Hub
	Host *peer.Host
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	ctx      context.Context
	mu       sync.Mutex
	LobbyMgr *lobby.Manager
	Rooms    map[string]*Room
	cfg      config.Server
	log      *zap.Logger
}

// NewHandlers creates handlers whose rooms live until ctx is done.
func NewHandlers(ctx context.Context, cfg config.Server, log *zap.Logger) *Handlers {
	return &Handlers{
		ctx:      ctx,
		LobbyMgr: lobby.NewManager(),
		Rooms:    make(map[string]*Room),
		cfg:      cfg,
		log:      log,
	}
}

// CreateRoom opens a room with the configured ruleset and AI seats.
func (h *Handlers) CreateRoom() (*Room, error) {
	lob, err := h.LobbyMgr.Create(engine.Ruleset(h.cfg.Ruleset))
	if err != nil {
		return nil, err
	}
	hub := NewHub(lob.ID, h.log)
	host := peer.NewHost("host-"+lob.ID, lob, hub, peer.Options{
		TokensToWin:   h.cfg.TokensToWin,
		Seed:          h.cfg.Seed,
		ReplayActions: h.cfg.ReplayActions,
		AutoStartAt:   h.cfg.AutoStartAt,
		AutoNextRound: h.cfg.AutoNextRound,
	}, h.log)
	hub.SetHandler(host)
	for i := 0; i < h.cfg.AISeats; i++ {
		if _, err := host.AddAI(fmt.Sprintf("Bot %d", i+1)); err != nil {
			h.LobbyMgr.Remove(lob.ID)
			return nil, fmt.Errorf("seat bot: %w", err)
		}
	}

	room := &Room{ID: lob.ID, Hub: hub, Host: host}
	h.mu.Lock()
	h.Rooms[room.ID] = room
	h.mu.Unlock()
	go hub.Run(h.ctx)

	h.log.Info("room created", zap.String("room", room.ID), zap.String("ruleset", h.cfg.Ruleset), zap.Int("bots", h.cfg.AISeats))
	return room, nil
}

// Room returns a room by ID.
func (h *Handlers) Room(id string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Rooms[id]
}

func (h *Handlers) publicHost(r *http.Request) string {
	if h.cfg.PublicHost != "" {
		return h.cfg.PublicHost
	}
	return r.Host
}

func (h *Handlers) roomFrom(w http.ResponseWriter, r *http.Request) (*Room, bool) {
	id := r.URL.Query().Get("room")
	if id == "" {
		http.Error(w, "missing room parameter", http.StatusBadRequest)
		return nil, false
	}
	room := h.Room(id)
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return nil, false
	}
	return room, true
}

// CreatedRoom is the response of the create endpoint.
type CreatedRoom struct {
	RoomID  string `json:"roomId"`
	HostID  string `json:"hostId"`
	JoinURL string `json:"joinUrl"`
	QRURL   string `json:"qrUrl"`
}

// HandleCreateGame creates a new room and returns how to join it.
func (h *Handlers) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	room, err := h.CreateRoom()
	if err != nil {
		h.log.Error("create room", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedRoom{
		RoomID:  room.ID,
		HostID:  room.Host.ID(),
		JoinURL: qr.JoinURL(h.publicHost(r), room.ID),
		QRURL:   "/api/qr?room=" + room.ID,
	})
}

// HandleQR generates a QR code PNG for joining the room.
func (h *Handlers) HandleQR(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFrom(w, r)
	if !ok {
		return
	}
	png, err := qr.Generate(qr.JoinURL(h.publicHost(r), room.ID))
	if err != nil {
		h.log.Error("qr generation", zap.Error(err))
		http.Error(w, "QR generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// HandleStart deals the first round of a room, or the next one once the
// previous round is over.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	room, ok := h.roomFrom(w, r)
	if !ok {
		return
	}
	if err := room.Host.Deal(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleState returns the room's state as seen by the peer parameter.
// Without a peer every hand is hidden.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFrom(w, r)
	if !ok {
		return
	}
	s := room.Host.State()
	if s == nil {
		http.Error(w, peer.ErrNotStarted.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, engine.ViewFor(s, r.URL.Query().Get("peer")))
}

// HandleWS upgrades a guest connection into the room's hub.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFrom(w, r)
	if !ok {
		return
	}
	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		peerID = NewPeerID()
	}
	if peerID == room.Host.ID() {
		http.Error(w, "peer id taken by the host", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, http.Header{HostHeader: {room.Host.ID()}})
	if err != nil {
		h.log.Warn("ws upgrade", zap.Error(err))
		return
	}

	client := NewClient(room.Hub, conn, peerID, h.log)
	if !room.Hub.Attach(client) {
		conn.Close()
		return
	}
	if err := client.Serve(r.Context()); err != nil {
		h.log.Info("connection closed", zap.String("room", room.ID), zap.String("peer", peerID), zap.Error(err))
	}
}

// HandlePlayerID returns a new peer ID.
func (h *Handlers) HandlePlayerID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(NewPeerID()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
