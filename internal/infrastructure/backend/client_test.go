package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/backend"
)

func newServer(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL+"/", "tok", time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetByID(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/inventory/inventario/12":
			writeJSON(w, http.StatusOK, dto.InventoryItemDTO{
				ID: 12, Name: "CUBE-12", Category: "Cube", State: "Operación", SubState: "En transito",
			})
		default:
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Code: "ITEM_NOT_FOUND", Message: "no existe"})
		}
	})

	it, err := c.GetByID(context.Background(), 12)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, entity.StateOperation, it.State)
	assert.Equal(t, entity.CategoryCube, it.Category)

	it, err = c.GetByID(context.Background(), 13)
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestUpdateState_LoteNuloViajaComoNull(t *testing.T) {
	var body map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/inventory/inventario/5/estado", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.UpdateState(context.Background(), 5, dto.InventoryData{State: "En bodega", SubState: "Disponible", ClearLot: true})
	require.NoError(t, err)

	v, ok := body["lot"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestUpdateState_ErrorDeDominio(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: "no"})
	})

	err := c.UpdateState(context.Background(), 5, dto.InventoryData{State: "Operación"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBulkStateChange_ParcialNoEsErrorDeTransporte(t *testing.T) {
	var got []dto.StateChangeItem
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory/inventario/bulk-state-change", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusMultiStatus, dto.BulkOperationResult{
			Success: 1, Total: 2, Errors: []string{"item 2: ítem de inventario no encontrado"},
		})
	})

	res, err := c.BulkStateChange(context.Background(), []dto.StateChangeItem{
		{ID: 1, InventoryData: dto.InventoryData{State: "Operación"}},
		{ID: 2, InventoryData: dto.InventoryData{State: "Operación"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Len(t, res.Errors, 1)
	assert.Len(t, got, 2)
}

func TestBulkStateChange_5xxEsFalloDeRed(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream caído", http.StatusServiceUnavailable)
	})

	_, err := c.BulkStateChange(context.Background(), []dto.StateChangeItem{{ID: 1}})
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestServidorInaccesible(t *testing.T) {
	c := backend.NewClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	err := c.CreateActivity(context.Background(), dto.ActivityData{ItemID: 1})
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestListTimers(t *testing.T) {
	ends := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timers", r.URL.Path)
		writeJSON(w, http.StatusOK, []dto.TimerDTO{{ID: "t-1", Label: "envio #1", EndsAt: ends, Active: true}})
	})

	list, err := c.ListTimers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, ends.Equal(list[0].EndsAt))
}

func TestTransition_ErrorDeLegalidad(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Code: "CATEGORY_NOT_ELIGIBLE", Message: "item 3"})
	})

	_, err := c.Transition(context.Background(), dto.TransitionRequest{ItemIDs: []int64{3}, State: "Pre-acondicionamiento"})
	assert.ErrorIs(t, err, domain.ErrCategoryNotEligible)
}

func TestWebSocketURL(t *testing.T) {
	assert.Equal(t, "ws://host:8080/ws/timers", backend.NewClient("http://host:8080/", "", 0).WebSocketURL())
	assert.Equal(t, "wss://api.example.com/ws/timers", backend.NewClient("https://api.example.com", "", 0).WebSocketURL())
}
