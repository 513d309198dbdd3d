// Package ws реализует live-доставку уведомлений по WebSocket. Доставка
// best-effort: журнал уведомлений в БД остаётся источником истины, потеря
// подключения никогда не влияет на доменные операции.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/metrics"
	"github.com/recorever/recorever-backend/internal/models"
)

// Типы событий в исходящем конверте.
const (
	eventPrivateUpdate = "private_update"
	eventUpdate        = "update"
)

// envelope конверт исходящего сообщения: "type" — имя события,
// "data" — уведомление.
type envelope struct {
	Type string              `json:"type"`
	Data models.Notification `json:"data"`
}

// Hub управляет всеми WebSocket-подключениями. Клиенты регистрируются с
// ролью, поэтому hub умеет и адресную доставку пользователю, и рассылку
// всем администраторам.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	admins     map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	outbound   chan delivery
}

type delivery struct {
	// userID нулевой при рассылке администраторам.
	userID  uuid.UUID
	toAdmin bool
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		admins:     make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan delivery, 64),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case d := <-h.outbound:
			h.deliver(d)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToUser доставляет уведомление во все подключения пользователя.
// Отсутствие подключений не ошибка: уведомление уже в журнале.
func (h *Hub) SendToUser(userID uuid.UUID, n models.Notification) {
	raw, err := json.Marshal(envelope{Type: eventPrivateUpdate, Data: n})
	if err != nil {
		logger.Log.WithError(err).Error("ws: notification marshal failed")
		return
	}

	h.outbound <- delivery{userID: userID, payload: raw}
}

// BroadcastToAdmins доставляет уведомление всем подключённым администраторам.
func (h *Hub) BroadcastToAdmins(n models.Notification) {
	raw, err := json.Marshal(envelope{Type: eventUpdate, Data: n})
	if err != nil {
		logger.Log.WithError(err).Error("ws: notification marshal failed")
		return
	}

	h.outbound <- delivery{toAdmin: true, payload: raw}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	if client.role.IsAdmin() {
		h.admins[client] = struct{}{}
	}

	metrics.ConnectedClients.Inc()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, present := clients[client]; present {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}
			delete(h.admins, client)
			metrics.ConnectedClients.Dec()
		}
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if d.toAdmin {
		for client := range h.admins {
			h.push(client, d.payload)
		}
		return
	}

	for client := range h.clients[d.userID] {
		h.push(client, d.payload)
	}
}

// push кладёт сообщение в буфер клиента. Переполненный буфер означает
// мёртвое или захлебнувшееся подключение: оно закрывается, доставка
// остальным продолжается.
func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		metrics.LivePushFailures.Inc()
		go client.Close()
	}
}
