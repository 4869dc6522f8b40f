// Package ws is the connection gateway: it authenticates websocket
// sessions, tracks room membership, and relays chat events.
package ws

import (
	"context"
	"log/slog"
	"sync"
)

// Hub is the registry of live connections and the rooms they joined. Each
// gateway owns its own Hub so instances never share ambient state. Every
// connection is auto-joined to a room keyed by its user id, enabling
// direct-to-user pushes independent of conversation rooms.
type Hub struct {
	log *slog.Logger

	mu          sync.RWMutex
	connections map[string]*Client             // connectionID -> client
	userConns   map[string]map[string]*Client  // userID -> connectionID -> client
	rooms       map[string]map[string]*Client  // roomID -> connectionID -> client
	clientRooms map[string]map[string]struct{} // connectionID -> joined roomIDs
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:         log,
		connections: make(map[string]*Client),
		userConns:   make(map[string]map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		clientRooms: make(map[string]map[string]struct{}),
	}
}

// Register tracks a new authenticated connection and joins it to its
// user room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.connections[c.ID] = c
	if h.userConns[c.UserID] == nil {
		h.userConns[c.UserID] = make(map[string]*Client)
	}
	h.userConns[c.UserID][c.ID] = c
	h.clientRooms[c.ID] = make(map[string]struct{})
	h.joinLocked(c.UserID, c)
	h.mu.Unlock()
	h.log.Info("client connected", "user_id", c.UserID, "connection_id", c.ID)
}

// Unregister removes the connection from every room and reports whether it
// was the user's last live connection.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c.ID]; !ok {
		return false
	}
	delete(h.connections, c.ID)
	for roomID := range h.clientRooms[c.ID] {
		h.leaveLocked(roomID, c.ID)
	}
	delete(h.clientRooms, c.ID)

	conns := h.userConns[c.UserID]
	delete(conns, c.ID)
	if len(conns) == 0 {
		delete(h.userConns, c.UserID)
		h.log.Info("client disconnected", "user_id", c.UserID, "connection_id", c.ID)
		return true
	}
	return false
}

// Join adds the connection to a conversation room. Unknown connections are
// ignored so a join racing a disconnect cannot resurrect state.
func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c.ID]; !ok {
		return
	}
	h.joinLocked(roomID, c)
}

// Leave removes the connection from a room.
func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, c.ID)
}

// Broadcast delivers data to every connection in the room and returns how
// many accepted it. Connections that cannot keep up close themselves; the
// disconnect path then cleans up their membership.
func (h *Hub) Broadcast(roomID string, data []byte) int {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		if err := c.Send(data); err == nil {
			delivered++
		}
	}
	return delivered
}

// BroadcastExcept is Broadcast minus one connection, used for typing relays
// so the sender never echoes to itself.
func (h *Hub) BroadcastExcept(roomID, exceptConnectionID string, data []byte) int {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id == exceptConnectionID {
			continue
		}
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		if err := c.Send(data); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers data to every connection of one user via its user
// room.
func (h *Hub) NotifyUser(userID string, data []byte) int {
	return h.Broadcast(userID, data)
}

// OnlineUsers snapshots the users with at least one live connection.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.userConns))
	for userID := range h.userConns {
		users = append(users, userID)
	}
	return users
}

// IsOnline lets the hub serve as the presence source when no external
// presence store is configured.
func (h *Hub) IsOnline(_ context.Context, userID string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0, nil
}

func (h *Hub) joinLocked(roomID string, c *Client) {
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[roomID] = room
	}
	room[c.ID] = c
	h.clientRooms[c.ID][roomID] = struct{}{}
}

func (h *Hub) leaveLocked(roomID, connectionID string) {
	room := h.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, connectionID)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
	if memberships, ok := h.clientRooms[connectionID]; ok {
		delete(memberships, roomID)
	}
}
