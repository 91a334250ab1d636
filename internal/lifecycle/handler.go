package lifecycle

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/events"
	"drone-fleet/internal/jwt"
	"drone-fleet/internal/order"
	"drone-fleet/internal/pkg/apperrors"
)

type Handler struct {
	manager   *Manager
	publisher events.Publisher
	now       func() time.Time
}

func NewHandler(m *Manager, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Handler{manager: m, publisher: publisher, now: time.Now}
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.Validation(c, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

func isCustomer(c *gin.Context) bool {
	return jwt.Role(c.GetString("role")) == jwt.RoleCustomer
}

func isStaff(c *gin.Context) bool {
	return jwt.Role(c.GetString("role")) == jwt.RoleStaff
}

// visible reports whether the caller may see o. Customers see their own
// orders and delivery staff the ones handed to them.
func visible(c *gin.Context, o *order.Order) bool {
	sub := c.GetString("sub")
	switch {
	case isCustomer(c):
		return o.CustomerID == sub
	case isStaff(c):
		return o.DeliveryStaffID != nil && *o.DeliveryStaffID == sub
	}
	return true
}

// authorize loads the order and checks the caller may see it.
func (h *Handler) authorize(c *gin.Context, id uuid.UUID) (*order.Order, bool) {
	o, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return nil, false
	}
	if !visible(c, o) {
		apperrors.ToHTTPError(c, domainerrors.OrderNotOwner())
		return nil, false
	}
	return o, true
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	if isCustomer(c) {
		req.CustomerID = c.GetString("sub")
	}
	ctx := c.Request.Context()

	o, err := h.manager.CreateOrder(ctx, req)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	events.Emit(ctx, h.publisher, events.ForOrder(events.OrderCreated, o, c.GetString("sub")))
	c.JSON(http.StatusCreated, order.OrderResponse{Order: o})
}

func (h *Handler) ListOrders(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	sub := c.GetString("sub")
	switch {
	case isCustomer(c):
		f.CustomerID = &sub
	case isStaff(c):
		f.StaffID = &sub
	}

	orders, err := h.manager.List(c.Request.Context(), f)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.OrdersResponse{Orders: orders})
}

func (h *Handler) ListActive(c *gin.Context) {
	orders, err := h.manager.ListActive(c.Request.Context())
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.OrdersResponse{Orders: orders})
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, ok := h.authorize(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order.OrderResponse{Order: o})
}

func (h *Handler) TrackOrder(c *gin.Context) {
	o, err := h.manager.GetByTrackingNumber(c.Request.Context(), c.Param("tracking"))
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	if !visible(c, o) {
		apperrors.ToHTTPError(c, domainerrors.OrderNotOwner())
		return
	}
	c.JSON(http.StatusOK, order.OrderResponse{Order: o})
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req order.CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Validation(c, err.Error())
			return
		}
	}
	if _, ok := h.authorize(c, id); !ok {
		return
	}

	out, err := h.manager.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	h.emitTransition(c.Request.Context(), out, c.GetString("sub"))
	c.JSON(http.StatusOK, order.OrderResponse{Order: out.Order})
}

func (h *Handler) TransitionOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req order.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	target, err := order.ParseStatus(req.TargetStatus)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}

	out, err := h.manager.Transition(c.Request.Context(), id, target, TransitionContext{
		Reason:             req.Reason,
		ActualDeliveryTime: req.ActualDeliveryTime,
	})
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	h.emitTransition(c.Request.Context(), out, c.GetString("sub"))
	c.JSON(http.StatusOK, order.OrderResponse{Order: out.Order})
}

func (h *Handler) emitTransition(ctx context.Context, out *Outcome, actor string) {
	if !out.Changed {
		return
	}
	events.Emit(ctx, h.publisher, events.ForOrder(events.OrderTransitioned, out.Order, actor))
	if out.Released != nil {
		events.Emit(ctx, h.publisher, events.ForDrone(events.DroneReleased, out.Released, actor))
	}
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) UpdatePayment(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req order.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	status, err := order.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	ctx := c.Request.Context()

	o, err := h.manager.UpdatePayment(ctx, id, status, req.PaymentID)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	events.Emit(ctx, h.publisher, events.ForOrder(events.OrderPaymentSet, o, c.GetString("sub")))
	c.JSON(http.StatusOK, order.OrderResponse{Order: o})
}

func (h *Handler) AssignStaff(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req order.StaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	o, err := h.manager.AssignDeliveryStaff(ctx, id, req.StaffID)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	events.Emit(ctx, h.publisher, events.ForOrder(events.OrderStaffSet, o, c.GetString("sub")))
	c.JSON(http.StatusOK, order.OrderResponse{Order: o})
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req order.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	o, err := h.manager.UpdateCurrentLocation(c.Request.Context(), id, *req.Lat, *req.Lng)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.OrderResponse{Order: o})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.manager.ComputeStats(c.Request.Context(), h.now())
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.StatsResponse{Stats: stats})
}

// -------------------------------------------------------------------------------------------------

// parseFilter reads customerId, status (comma separated), droneId,
// operatorId, deliveryStaffId, dateFrom and dateTo (RFC 3339) from the
// query string.
func parseFilter(c *gin.Context) (order.Filter, error) {
	var f order.Filter
	if v := c.Query("customerId"); v != "" {
		f.CustomerID = &v
	}
	if v := c.Query("operatorId"); v != "" {
		f.OperatorID = &v
	}
	if v := c.Query("deliveryStaffId"); v != "" {
		f.StaffID = &v
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			st, err := order.ParseStatus(strings.TrimSpace(s))
			if err != nil {
				return f, err
			}
			f.Status = append(f.Status, st)
		}
	}
	if v := c.Query("droneId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, domainerrors.NewValidation("invalid droneId")
		}
		f.DroneID = &id
	}
	for name, dst := range map[string]**time.Time{"dateFrom": &f.DateFrom, "dateTo": &f.DateTo} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, domainerrors.NewValidation(name + " must be an RFC 3339 timestamp")
		}
		*dst = &t
	}
	return f, nil
}
