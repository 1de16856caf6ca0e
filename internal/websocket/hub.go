package websocket

import (
	"encoding/json"
	"sync"

	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
)

// Client es una sesión WebSocket de un usuario autenticado. Un usuario puede
// tener varias sesiones abiertas (web y móvil a la vez).
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte
}

// Hub administra las sesiones y empuja notificaciones por usuario. Es sólo un
// canal de entrega: las notificaciones persisten en la base aunque el usuario
// esté desconectado.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	push       chan *pushMessage

	mu sync.RWMutex
}

type pushMessage struct {
	UserID  uint
	Message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		push:       make(chan *pushMessage, 1024),
	}
}

// Run procesa registros y envíos. Se ejecuta en una goroutine propia.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": len(h.clients[client.UserID]),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clientList, ok := h.clients[client.UserID]; ok {
				newList := make([]*Client, 0, len(clientList))
				for _, c := range clientList {
					if c != client {
						newList = append(newList, c)
					}
				}
				if len(newList) == 0 {
					delete(h.clients, client.UserID)
				} else {
					h.clients[client.UserID] = newList
				}
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id": client.UserID,
			})

		case message := <-h.push:
			h.mu.RLock()
			if clientList, ok := h.clients[message.UserID]; ok {
				for _, client := range clientList {
					select {
					case client.Send <- message.Message:
					default:
						go h.Unregister(client)
						logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
							"user_id": message.UserID,
						})
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SendToUser empuja un payload a todas las sesiones del usuario. Si el canal
// de envío está lleno, el mensaje se descarta: la notificación persistida en
// la base sigue disponible.
func (h *Hub) SendToUser(userID uint, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal push message", err, nil)
		return err
	}

	select {
	case h.push <- &pushMessage{UserID: userID, Message: data}:
		return nil
	default:
		logger.Warn("Push channel full, message dropped", map[string]interface{}{
			"user_id": userID,
		})
		return nil
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline informa si el usuario tiene al menos una sesión abierta.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
