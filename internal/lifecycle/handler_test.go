package lifecycle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-fleet/internal/events"
	"drone-fleet/internal/lifecycle"
	"drone-fleet/internal/order"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// as mounts h behind a stub that authenticates every request as sub/role.
func as(h *lifecycle.Handler, sub, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("sub", sub)
		c.Set("role", role)
		c.Next()
	})
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/active", h.ListActive)
	r.GET("/orders/stats", h.Stats)
	r.GET("/orders/track/:tracking", h.TrackOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.POST("/orders/:id/transition", h.TransitionOrder)
	r.POST("/orders/:id/payment", h.UpdatePayment)
	r.POST("/orders/:id/staff", h.AssignStaff)
	r.POST("/orders/:id/location", h.UpdateLocation)
	return r
}

func call(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) *order.Order {
	t.Helper()
	var resp order.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Order
}

func TestHandler_CustomerOwnsOrders(t *testing.T) {
	f := newFixture()
	pub := &recordingPublisher{}
	h := lifecycle.NewHandler(f.manager, pub)
	alice := as(h, "alice", "customer")
	bob := as(h, "bob", "customer")

	req := validRequest()
	req.CustomerID = "someone-else"
	w := call(t, alice, http.MethodPost, "/orders", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeOrder(t, w)
	assert.Equal(t, "alice", created.CustomerID)
	assert.Equal(t, 25.49, created.Price)

	w = call(t, bob, http.MethodGet, "/orders/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, bob, http.MethodGet, "/orders/track/"+created.TrackingNumber, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, bob, http.MethodPost, "/orders/"+created.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, bob, http.MethodGet, "/orders?customerId=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list order.OrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Orders)

	w = call(t, alice, http.MethodGet, "/orders/track/"+created.TrackingNumber, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, alice, http.MethodPost, "/orders/"+created.ID.String()+"/cancel", order.CancelRequest{Reason: "oops"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.StatusCancelled, decodeOrder(t, w).Status)

	// repeat cancel is a no-op and publishes nothing new
	w = call(t, alice, http.MethodPost, "/orders/"+created.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []events.Type{events.OrderCreated, events.OrderTransitioned}, pub.types())
}

func TestHandler_OperatorFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pub := &recordingPublisher{}
	r := as(lifecycle.NewHandler(f.manager, pub), "op-1", "operator")

	o, d := f.inTransit(t)

	w := call(t, r, http.MethodPost, "/orders/"+o.ID.String()+"/location", map[string]float64{"lat": 51.52, "lng": -0.1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodPost, "/orders/"+o.ID.String()+"/transition", order.TransitionRequest{TargetStatus: "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, order.StatusDelivered, decodeOrder(t, w).Status)
	assert.Equal(t, []events.Type{events.OrderTransitioned, events.DroneReleased}, pub.types())
	assert.Equal(t, "available", string(f.droneStatus(t, d.ID)))

	w = call(t, r, http.MethodPost, "/orders/"+o.ID.String()+"/transition", order.TransitionRequest{TargetStatus: "assigned"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, r, http.MethodPost, "/orders/"+o.ID.String()+"/transition", order.TransitionRequest{TargetStatus: "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodPost, "/orders/"+o.ID.String()+"/payment", order.PaymentRequest{PaymentStatus: "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.PaymentCompleted, decodeOrder(t, w).PaymentStatus)

	w = call(t, r, http.MethodGet, "/orders/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats order.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Stats.Delivered)
	assert.Equal(t, 25.49, stats.Stats.TodayRevenue)

	other := f.create(t)
	_, err := f.manager.Transition(ctx, other.ID, order.StatusConfirmed, lifecycle.TransitionContext{})
	require.NoError(t, err)
	w = call(t, r, http.MethodGet, "/orders/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active order.OrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	require.Len(t, active.Orders, 1)
	assert.Equal(t, other.ID, active.Orders[0].ID)
}

func TestHandler_ListFilterValidation(t *testing.T) {
	f := newFixture()
	r := as(lifecycle.NewHandler(f.manager, nil), "admin-1", "admin")
	f.create(t)

	w := call(t, r, http.MethodGet, "/orders?status=pending,confirmed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list order.OrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Orders, 1)

	for _, q := range []string{"status=lost", "droneId=xyz", "dateFrom=yesterday"} {
		w := call(t, r, http.MethodGet, "/orders?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w = call(t, r, http.MethodGet, "/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_StaffSeesOwnDeliveries(t *testing.T) {
	f := newFixture()
	pub := &recordingPublisher{}
	h := lifecycle.NewHandler(f.manager, pub)
	ops := as(h, "op-1", "operator")
	sam := as(h, "sam", "staff")
	kim := as(h, "kim", "staff")

	mine := f.create(t)
	f.create(t)

	w := call(t, ops, http.MethodPost, "/orders/"+mine.ID.String()+"/staff", order.StaffRequest{StaffID: "sam"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sam", *decodeOrder(t, w).DeliveryStaffID)
	assert.Equal(t, []events.Type{events.OrderStaffSet}, pub.types())

	w = call(t, ops, http.MethodPost, "/orders/"+mine.ID.String()+"/staff", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, sam, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list order.OrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Orders, 1)
	assert.Equal(t, mine.ID, list.Orders[0].ID)

	w = call(t, sam, http.MethodGet, "/orders/"+mine.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(t, kim, http.MethodGet, "/orders/"+mine.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, ops, http.MethodGet, "/orders?deliveryStaffId=sam", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Orders, 1)
}
