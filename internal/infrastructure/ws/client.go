package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
)

// Reconciler destino de los mensajes recibidos (ver timersync.Reconciler).
type Reconciler interface {
	Apply(msg dto.PushMessage) error
	Resync(ctx context.Context) error
}

// ClientConfig parámetros de reconexión.
type ClientConfig struct {
	Token      string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// OnConnect se invoca tras cada conexión y resincronización (opcional).
	OnConnect func()
}

// Client se mantiene conectado a /ws/timers y reenvía cada mensaje al
// Reconciler. Reconecta con espera exponencial acotada y resincroniza el
// registro completo en cada conexión.
type Client struct {
	url    string
	cfg    ClientConfig
	rec    Reconciler
	dialer *websocket.Dialer
	log    zerolog.Logger
}

func NewClient(url string, rec Reconciler, cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Client{
		url:    url,
		cfg:    cfg,
		rec:    rec,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log.With().Str("component", "ws_client").Logger(),
	}
}

// Run bloquea hasta que ctx termine.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.MinBackoff
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = c.cfg.MinBackoff
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("canal de push desconectado")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.cfg.MaxBackoff)
	}
}

// session conecta, resincroniza y consume mensajes hasta el primer error.
func (c *Client) session(ctx context.Context) (bool, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := c.rec.Resync(ctx); err != nil {
		c.log.Error().Err(err).Msg("resincronización fallida")
		return false, err
	}
	c.log.Info().Str("url", c.url).Msg("canal de push conectado")
	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect()
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var msg dto.PushMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn().Err(err).Msg("mensaje malformado")
			continue
		}
		if err := c.rec.Apply(msg); err != nil {
			c.log.Warn().Err(err).Str("type", msg.Type).Msg("mensaje no aplicado")
		}
	}
}
