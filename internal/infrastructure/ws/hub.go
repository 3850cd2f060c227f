// Package ws implementa el canal de push /ws/timers: el hub del servidor y el
// cliente con reconexión.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
)

const (
	// DefaultClientBuffer mensajes pendientes por cliente antes de desconectarlo.
	DefaultClientBuffer = 64
	writeWait           = 10 * time.Second
	pingPeriod          = 30 * time.Second
)

// Conn lo mínimo que el hub necesita de una conexión WebSocket.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscriber struct {
	id   uint64
	send chan []byte
}

// Hub difunde a todas las conexiones registradas los cambios de temporizadores
// e inventario. Un cliente que no consume a tiempo se desconecta en lugar de
// bloquear la difusión.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64

	buffer int
	now    func() time.Time
	log    zerolog.Logger
}

// NewHub crea el hub. now se usa para calcular el restante de cada temporizador.
func NewHub(buffer int, now func() time.Time, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	if now == nil {
		now = time.Now
	}
	return &Hub{
		subs:   make(map[uint64]*subscriber),
		buffer: buffer,
		now:    now,
		log:    log.With().Str("component", "ws_hub").Logger(),
	}
}

// Register da de alta un suscriptor y devuelve su id y su cola de salida.
// La cola se cierra cuando el suscriptor se da de baja o se descarta.
func (h *Hub) Register() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &subscriber{id: h.nextID, send: make(chan []byte, h.buffer)}
	h.subs[s.id] = s
	return s.id, s.send
}

// Unregister da de baja el suscriptor. Idempotente.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	s, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(s.send)
	}
	h.mu.Unlock()
}

// Clients número de suscriptores conectados.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish implementa timer.Publisher.
func (h *Hub) Publish(evt timer.Event) {
	p := dto.TimerUpdatePayload{Action: evt.Action}
	if evt.Action == dto.TimerActionDeleted {
		p.TimerID = evt.Timer.ID
	} else {
		d := dto.NewTimerDTO(evt.Timer, h.now())
		p.Timer = &d
	}
	h.send(dto.MessageTimerUpdate, p)
}

// InventoryChanged difunde las nuevas posiciones tras una operación de estado.
func (h *Hub) InventoryChanged(items []dto.InventoryUpdateItem) {
	if len(items) == 0 {
		return
	}
	h.send(dto.MessageInventoryUpdate, dto.InventoryUpdatePayload{Items: items})
}

func (h *Hub) send(typ string, payload any) {
	msg, err := dto.NewPushMessage(typ, payload)
	if err != nil {
		h.log.Error().Err(err).Str("type", typ).Msg("serializar mensaje")
		return
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", typ).Msg("serializar mensaje")
		return
	}
	h.Broadcast(raw)
}

// Broadcast entrega raw a cada suscriptor sin bloquear.
func (h *Hub) Broadcast(raw []byte) {
	var slow []uint64
	h.mu.RLock()
	for id, s := range h.subs {
		select {
		case s.send <- raw:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		h.log.Warn().Uint64("client", id).Msg("cliente lento desconectado")
		h.Unregister(id)
	}
}

// Serve atiende una conexión hasta que el cliente cierre o sea descartado.
func (h *Hub) Serve(conn Conn) {
	id, out := h.Register()
	defer h.Unregister(id)
	h.log.Debug().Uint64("client", id).Msg("cliente conectado")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			// El cliente no envía mensajes; la lectura detecta el cierre.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer conn.Close()
	for {
		select {
		case <-closed:
			h.log.Debug().Uint64("client", id).Msg("cliente desconectado")
			return
		case raw, ok := <-out:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler handler de fiber para GET /ws/timers. Rechaza peticiones que no
// solicitan el upgrade.
func (h *Hub) Handler() fiber.Handler {
	upgrade := websocket.New(func(c *websocket.Conn) { h.Serve(c) })
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
