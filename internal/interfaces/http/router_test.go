package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/bulk"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/lifecycle"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/kvstore"
	apphttp "github.com/JoseeGarciaa/kryotecsense-sub001/internal/interfaces/http"
	pkgjwt "github.com/JoseeGarciaa/kryotecsense-sub001/pkg/jwt"
)

// memStore almacén de inventario en memoria.
type memStore struct {
	mu         sync.Mutex
	items      map[int64]*entity.InventoryItem
	activities []dto.ActivityData
	fail       map[int64]error
	lastUpdate dto.InventoryData
}

func newMemStore(items ...*entity.InventoryItem) *memStore {
	s := &memStore{items: map[int64]*entity.InventoryItem{}, fail: map[int64]error{}}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id int64) (*entity.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (s *memStore) GetByRFID(_ context.Context, rfid string) (*entity.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.RFID == rfid {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateState(_ context.Context, id int64, data dto.InventoryData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[id]; err != nil {
		return err
	}
	it, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	it.State = entity.State(data.State)
	it.SubState = entity.SubState(data.SubState)
	if data.ClearLot {
		it.Lot = nil
	} else if data.Lot != nil {
		it.Lot = data.Lot
	}
	s.lastUpdate = data
	return nil
}

func (s *memStore) CreateActivity(_ context.Context, a dto.ActivityData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, a)
	return nil
}

func (s *memStore) state(id int64) entity.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].State
}

func item(id int64, st entity.State, sub entity.SubState) *entity.InventoryItem {
	return &entity.InventoryItem{
		ID:       id,
		Name:     fmt.Sprintf("CUBE-%d", id),
		RFID:     fmt.Sprintf("RF%04d", id),
		Category: entity.CategoryCube,
		State:    st,
		SubState: sub,
	}
}

type testServer struct {
	app     *fiber.App
	store   *memStore
	tenants *apphttp.Tenants
}

func newTestServer(t *testing.T, items ...*entity.InventoryItem) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := newMemStore(items...)
	exec := bulk.NewExecutor(store, bulk.Config{}, zerolog.Nop())
	tenants := apphttp.NewTenants(ctx, apphttp.NewTenantFactory(apphttp.TenantDeps{
		Store:     kvstore.NewMemoryStore(),
		Items:     store,
		Executor:  exec,
		Timers:    timer.Config{TickInterval: time.Hour},
		Lifecycle: lifecycle.Config{},
		QueueSize: 8,
		Log:       zerolog.Nop(),
	}), zerolog.Nop())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Store:     store,
		Bulk:      exec,
		Tenants:   tenants,
		JWTSecret: testJWTSecret,
	})
	return &testServer{app: app, store: store, tenants: tenants}
}

func bearer(t *testing.T, companyID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, companyID, role, testIssuer, testTTL)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) call(t *testing.T, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, raw.Bytes()
}

func TestInventory_GetByIDYRFID(t *testing.T) {
	s := newTestServer(t, item(1, entity.StateWarehouse, entity.SubStateAvailable))
	auth := bearer(t, testCompanyID, "operador")

	resp, body := s.call(t, http.MethodGet, "/api/inventory/inventario/1", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var it dto.InventoryItemDTO
	require.NoError(t, json.Unmarshal(body, &it))
	assert.Equal(t, "CUBE-1", it.Name)
	assert.Equal(t, "En bodega", it.State)

	resp, body = s.call(t, http.MethodGet, "/api/inventory/inventario/rfid/rf0001", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &it))
	assert.Equal(t, int64(1), it.ID)

	resp, body = s.call(t, http.MethodGet, "/api/inventory/inventario/99", auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "ITEM_NOT_FOUND")
}

func TestInventory_SinTokenRetorna401(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.call(t, http.MethodGet, "/api/inventory/inventario/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInventory_PatchEstadoABodegaLimpiaLote(t *testing.T) {
	lot := "L-7"
	it := item(1, entity.StateInspection, entity.SubStatePending)
	it.Lot = &lot
	s := newTestServer(t, it)

	resp, _ := s.call(t, http.MethodPatch, "/api/inventory/inventario/1/estado", bearer(t, testCompanyID, "operador"),
		map[string]any{"estado": "En bodega"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.True(t, s.store.lastUpdate.ClearLot)
	assert.Equal(t, "Disponible", s.store.lastUpdate.SubState)
	assert.Equal(t, entity.StateWarehouse, s.store.state(1))
}

func TestInventory_BulkStateChangeParcialRetorna207(t *testing.T) {
	s := newTestServer(t,
		item(1, entity.StateWarehouse, entity.SubStateAvailable),
		item(2, entity.StateWarehouse, entity.SubStateAvailable))
	s.store.fail[2] = domain.ErrNetworkFailure

	body := []dto.StateChangeItem{
		{ID: 1, InventoryData: dto.InventoryData{State: "Pre-acondicionamiento"}, ActivityData: dto.ActivityData{ItemID: 1}},
		{ID: 2, InventoryData: dto.InventoryData{State: "Pre-acondicionamiento"}, ActivityData: dto.ActivityData{ItemID: 2}},
	}
	resp, raw := s.call(t, http.MethodPost, "/api/inventory/inventario/bulk-state-change", bearer(t, testCompanyID, "operador"), body)
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)

	var res dto.BulkOperationResult
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "item 2")
}

func TestInventory_BulkStateChangeTotalRetorna502(t *testing.T) {
	s := newTestServer(t, item(1, entity.StateWarehouse, entity.SubStateAvailable))
	s.store.fail[1] = errors.New("timeout")

	body := []dto.StateChangeItem{{ID: 1, InventoryData: dto.InventoryData{State: "Pre-acondicionamiento"}}}
	resp, _ := s.call(t, http.MethodPost, "/api/inventory/inventario/bulk-state-change", bearer(t, testCompanyID, "operador"), body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestLifecycle_TransicionCreaTemporizadorSoloEnSuEmpresa(t *testing.T) {
	s := newTestServer(t, item(1, entity.StateWarehouse, entity.SubStateAvailable))
	auth := bearer(t, testCompanyID, "operador")

	resp, raw := s.call(t, http.MethodPost, "/api/lifecycle/transitions", auth, dto.TransitionRequest{
		ItemIDs: []int64{1}, State: "Pre-acondicionamiento", SubState: "Congelación", TimerMinutes: 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var out dto.TransitionResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 1, out.Success)
	assert.Equal(t, 1, out.TimersCreated)
	assert.Equal(t, entity.StatePreConditioning, s.store.state(1))

	resp, raw = s.call(t, http.MethodGet, "/api/timers", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var timers []dto.TimerDTO
	require.NoError(t, json.Unmarshal(raw, &timers))
	require.Len(t, timers, 1)
	assert.Equal(t, int64(1), timers[0].ItemID)
	assert.Equal(t, "congelamiento", timers[0].OperationType)
	assert.Equal(t, int64(30*60), timers[0].RemainingSeconds)

	_, raw = s.call(t, http.MethodGet, "/api/timers", bearer(t, "otra-empresa", "operador"), nil)
	require.NoError(t, json.Unmarshal(raw, &timers))
	assert.Empty(t, timers)
	assert.Equal(t, 2, s.tenants.Len())
}

func TestLifecycle_TransicionIlegalRetorna409(t *testing.T) {
	s := newTestServer(t, item(1, entity.StateWarehouse, entity.SubStateAvailable))

	resp, raw := s.call(t, http.MethodPost, "/api/lifecycle/transitions", bearer(t, testCompanyID, "operador"), dto.TransitionRequest{
		ItemIDs: []int64{1}, State: "Operación",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), "INVALID_TRANSITION")
	assert.Equal(t, entity.StateWarehouse, s.store.state(1))
}

func TestLifecycle_InspeccionSoloDesdeDevolucion(t *testing.T) {
	s := newTestServer(t, item(1, entity.StateOperation, entity.SubStateInTransit))

	resp, _ := s.call(t, http.MethodPost, "/api/lifecycle/inspection", bearer(t, testCompanyID, "operador"),
		dto.ItemsActionRequest{ItemIDs: []int64{1}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTimers_CrearEsIdempotentePorEtiqueta(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, testCompanyID, "operador")
	req := dto.CreateTimerRequest{Label: "Lote A", OperationType: "congelamiento", DurationMinutes: 10}

	resp, raw := s.call(t, http.MethodPost, "/api/timers", auth, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first dto.TimerDTO
	require.NoError(t, json.Unmarshal(raw, &first))

	resp, raw = s.call(t, http.MethodPost, "/api/timers", auth, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second dto.TimerDTO
	require.NoError(t, json.Unmarshal(raw, &second))
	assert.Equal(t, first.ID, second.ID)

	resp, raw = s.call(t, http.MethodPost, "/api/timers", auth, dto.CreateTimerRequest{Label: "B", OperationType: "envio"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "INVALID_DURATION")
}

func TestTimers_PausaYReanudacion(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, testCompanyID, "operador")

	_, raw := s.call(t, http.MethodPost, "/api/timers", auth, dto.CreateTimerRequest{Label: "Lote A", OperationType: "envio", DurationMinutes: 5})
	var tm dto.TimerDTO
	require.NoError(t, json.Unmarshal(raw, &tm))

	resp, raw := s.call(t, http.MethodPost, "/api/timers/"+tm.ID+"/pause", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &tm))
	assert.False(t, tm.Active)

	resp, raw = s.call(t, http.MethodPost, "/api/timers/"+tm.ID+"/resume", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &tm))
	assert.True(t, tm.Active)

	resp, raw = s.call(t, http.MethodPost, "/api/timers/no-existe/pause", auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), "TIMER_NOT_FOUND")
}

func TestTimers_LoteParcialRetorna207(t *testing.T) {
	s := newTestServer(t)
	resp, raw := s.call(t, http.MethodPost, "/api/timers/batch", bearer(t, testCompanyID, "operador"), dto.CreateTimerBatchRequest{
		Labels: []string{"A", "  ", "C"}, OperationType: "inspeccion", DurationMinutes: 15,
	})
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	var out dto.TimerBatchResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 2, out.Success)
	assert.Len(t, out.Timers, 2)
}

func TestTimers_BorrarRequiereSupervisor(t *testing.T) {
	s := newTestServer(t)
	_, raw := s.call(t, http.MethodPost, "/api/timers", bearer(t, testCompanyID, "operador"),
		dto.CreateTimerRequest{Label: "Lote A", OperationType: "envio", DurationMinutes: 5})
	var tm dto.TimerDTO
	require.NoError(t, json.Unmarshal(raw, &tm))

	resp, _ := s.call(t, http.MethodDelete, "/api/timers/"+tm.ID, bearer(t, testCompanyID, "operador"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.call(t, http.MethodDelete, "/api/timers/"+tm.ID, bearer(t, testCompanyID, "supervisor"), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Idempotente.
	resp, _ = s.call(t, http.MethodDelete, "/api/timers/"+tm.ID, bearer(t, testCompanyID, "supervisor"), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPush_SinUpgradeRetorna426(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.call(t, http.MethodGet, "/ws/timers", bearer(t, testCompanyID, "operador"), nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
