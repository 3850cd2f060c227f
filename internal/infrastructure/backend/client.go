// Package backend adaptador REST hacia el servicio de inventario. Implementa
// los puertos del ejecutor masivo y del ciclo de vida sobre la API HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/bulk"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// Verificar en tiempo de compilación que Client implementa BatchGateway.
var _ bulk.BatchGateway = (*Client)(nil)

// maxBody límite de lectura de respuestas.
const maxBody = 4 << 20

// Client cliente HTTP de la API (/api/...). Usa net/http de la librería estándar.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient construye el cliente. baseURL sin la barra final, p. ej.
// "http://localhost:8080". timeout <= 0 usa 30 s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WebSocketURL URL del canal de push derivada de baseURL.
func (c *Client) WebSocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/timers"
}

// Token credencial enviada como Bearer.
func (c *Client) Token() string { return c.token }

// ── Inventario ───────────────────────────────────────────────────────────────

// GetByID devuelve nil, nil si el ítem no existe.
func (c *Client) GetByID(ctx context.Context, id int64) (*entity.InventoryItem, error) {
	return c.getItem(ctx, "/api/inventory/inventario/"+strconv.FormatInt(id, 10))
}

// GetByRFID devuelve nil, nil si ningún ítem tiene el código.
func (c *Client) GetByRFID(ctx context.Context, rfid string) (*entity.InventoryItem, error) {
	return c.getItem(ctx, "/api/inventory/inventario/rfid/"+url.PathEscape(rfid))
}

func (c *Client) getItem(ctx context.Context, path string) (*entity.InventoryItem, error) {
	var out dto.InventoryItemDTO
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Entity(), nil
}

// UpdateState PATCH /api/inventory/inventario/{id}/estado.
func (c *Client) UpdateState(ctx context.Context, id int64, data dto.InventoryData) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/inventory/inventario/%d/estado", id), data, nil)
}

// CreateActivity POST /api/activities/actividades/.
func (c *Client) CreateActivity(ctx context.Context, a dto.ActivityData) error {
	return c.do(ctx, http.MethodPost, "/api/activities/actividades/", a, nil)
}

// BulkStateChange un lote completo en una sola llamada. Las respuestas 207 y
// 502 traen el resultado por ítem y no se tratan como error de transporte.
func (c *Client) BulkStateChange(ctx context.Context, items []dto.StateChangeItem) (dto.BulkOperationResult, error) {
	return c.bulk(ctx, "/api/inventory/inventario/bulk-state-change", items)
}

// BulkUpdate POST /api/inventory/inventario/bulk-update.
func (c *Client) BulkUpdate(ctx context.Context, items []dto.BulkUpdateItem) (dto.BulkOperationResult, error) {
	return c.bulk(ctx, "/api/inventory/inventario/bulk-update", items)
}

// BulkActivities POST /api/inventory/inventario/bulk-activities.
func (c *Client) BulkActivities(ctx context.Context, items []dto.ActivityData) (dto.BulkOperationResult, error) {
	return c.bulk(ctx, "/api/inventory/inventario/bulk-activities", items)
}

func (c *Client) bulk(ctx context.Context, path string, body any) (dto.BulkOperationResult, error) {
	var res dto.BulkOperationResult
	status, raw, err := c.roundTrip(ctx, http.MethodPost, path, body)
	if err != nil {
		return res, err
	}
	switch status {
	case http.StatusOK, http.StatusMultiStatus, http.StatusBadGateway:
		if err := json.Unmarshal(raw, &res); err != nil {
			return res, fmt.Errorf("backend: deserializar resultado masivo: %w", err)
		}
		if res.Errors == nil {
			res.Errors = []string{}
		}
		return res, nil
	}
	return res, responseError(status, raw)
}

// ── Ciclo de vida ────────────────────────────────────────────────────────────

// Transition POST /api/lifecycle/transitions.
func (c *Client) Transition(ctx context.Context, req dto.TransitionRequest) (dto.TransitionResponse, error) {
	return c.lifecycle(ctx, "/api/lifecycle/transitions", req)
}

// ReturnToOperation POST /api/lifecycle/return-to-operation.
func (c *Client) ReturnToOperation(ctx context.Context, req dto.ItemsActionRequest) (dto.TransitionResponse, error) {
	return c.lifecycle(ctx, "/api/lifecycle/return-to-operation", req)
}

// SendToInspection POST /api/lifecycle/inspection.
func (c *Client) SendToInspection(ctx context.Context, req dto.ItemsActionRequest) (dto.TransitionResponse, error) {
	return c.lifecycle(ctx, "/api/lifecycle/inspection", req)
}

func (c *Client) lifecycle(ctx context.Context, path string, body any) (dto.TransitionResponse, error) {
	var res dto.TransitionResponse
	status, raw, err := c.roundTrip(ctx, http.MethodPost, path, body)
	if err != nil {
		return res, err
	}
	switch status {
	case http.StatusOK, http.StatusMultiStatus, http.StatusBadGateway:
		if err := json.Unmarshal(raw, &res); err != nil {
			return res, fmt.Errorf("backend: deserializar transición: %w", err)
		}
		return res, nil
	}
	return res, responseError(status, raw)
}

// ── Temporizadores ───────────────────────────────────────────────────────────

// ListTimers GET /api/timers. Implementa timersync.SnapshotSource.
func (c *Client) ListTimers(ctx context.Context) ([]dto.TimerDTO, error) {
	var out []dto.TimerDTO
	if err := c.do(ctx, http.MethodGet, "/api/timers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTimer POST /api/timers. Un temporizador activo con la misma etiqueta
// se devuelve sin crear otro.
func (c *Client) CreateTimer(ctx context.Context, req dto.CreateTimerRequest) (dto.TimerDTO, error) {
	var out dto.TimerDTO
	err := c.do(ctx, http.MethodPost, "/api/timers", req, &out)
	return out, err
}

// PauseTimer POST /api/timers/{id}/pause.
func (c *Client) PauseTimer(ctx context.Context, id string) (dto.TimerDTO, error) {
	var out dto.TimerDTO
	err := c.do(ctx, http.MethodPost, "/api/timers/"+url.PathEscape(id)+"/pause", nil, &out)
	return out, err
}

// ResumeTimer POST /api/timers/{id}/resume.
func (c *Client) ResumeTimer(ctx context.Context, id string) (dto.TimerDTO, error) {
	var out dto.TimerDTO
	err := c.do(ctx, http.MethodPost, "/api/timers/"+url.PathEscape(id)+"/resume", nil, &out)
	return out, err
}

// DeleteTimer DELETE /api/timers/{id}.
func (c *Client) DeleteTimer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/timers/"+url.PathEscape(id), nil, nil)
}

// ── Transporte ───────────────────────────────────────────────────────────────

// do ejecuta la llamada y exige un 2xx; out puede ser nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	status, raw, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return responseError(status, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend: deserializar %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("backend: serializar request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("backend: crear HTTP request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, fmt.Errorf("backend: timeout o cancelación: %w", ctx.Err())
		}
		return 0, nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrNetworkFailure, err)
	}
	return resp.StatusCode, raw, nil
}

// responseError traduce una respuesta no exitosa al error de dominio de su código.
func responseError(status int, raw []byte) error {
	var e dto.ErrorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Code != "" {
		if derr := dto.ErrorFromCode(e.Code); derr != nil {
			return fmt.Errorf("%w: %s", derr, e.Message)
		}
		return fmt.Errorf("backend: HTTP %d (%s): %s", status, e.Code, e.Message)
	}
	switch status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	}
	if status >= 500 {
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetworkFailure, status, truncate(raw, 256))
	}
	return fmt.Errorf("backend: HTTP %d: %s", status, truncate(raw, 256))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "…"
	}
	return string(b)
}
