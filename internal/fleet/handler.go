package fleet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/events"
	"drone-fleet/internal/order"
	"drone-fleet/internal/pkg/apperrors"
)

type Handler struct {
	coordinator *Coordinator
	publisher   events.Publisher
}

func NewHandler(c *Coordinator, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Handler{coordinator: c, publisher: publisher}
}

func droneID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.Validation(c, "invalid drone id")
		return uuid.Nil, false
	}
	return id, true
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) RegisterDrone(c *gin.Context) {
	var req drone.RegisterDroneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	d, err := h.coordinator.Register(c.Request.Context(), req)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusCreated, drone.DroneResponse{Drone: d})
}

func (h *Handler) ListDrones(c *gin.Context) {
	var f drone.Filter
	if s := c.Query("status"); s != "" {
		st, err := drone.ParseStatus(s)
		if err != nil {
			apperrors.ToHTTPError(c, err)
			return
		}
		f.Status = &st
	}
	if op := c.Query("operatorId"); op != "" {
		f.OperatorID = &op
	}
	if a := c.Query("isActive"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			apperrors.Validation(c, "isActive must be a boolean")
			return
		}
		f.IsActive = &active
	}

	drones, err := h.coordinator.List(c.Request.Context(), f)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DronesResponse{Drones: drones})
}

func (h *Handler) ListAvailable(c *gin.Context) {
	drones, err := h.coordinator.ListAvailable(c.Request.Context())
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DronesResponse{Drones: drones})
}

func (h *Handler) GetDrone(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	d, err := h.coordinator.Get(c.Request.Context(), id)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

func (h *Handler) DeleteDrone(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	if err := h.coordinator.Delete(c.Request.Context(), id); err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateDrone(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	var req drone.UpdateDroneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	d, err := h.coordinator.UpdateSpecs(c.Request.Context(), id, req)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	var req drone.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	next, err := drone.ParseStatus(req.Status)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}

	d, err := h.coordinator.SetMaintenanceStatus(c.Request.Context(), id, next)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

func (h *Handler) SetActive(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	var req drone.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	d, err := h.coordinator.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

func (h *Handler) RecordMaintenance(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	var req drone.MaintenanceRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	d, err := h.coordinator.RecordMaintenance(c.Request.Context(), id, req)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

func (h *Handler) Release(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	d, err := h.coordinator.ReleaseIdle(ctx, id)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	events.Emit(ctx, h.publisher, events.ForDrone(events.DroneReleased, d, c.GetString("sub")))
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) UpdateLocation(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	var req drone.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	d, err := h.coordinator.UpdateLocation(c.Request.Context(), id, *req.Lat, *req.Lng, req.Address)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

func (h *Handler) GetLocation(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	fix, err := h.coordinator.GetLocation(c.Request.Context(), id)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": fix})
}

func (h *Handler) UpdateBattery(c *gin.Context) {
	id, ok := droneID(c)
	if !ok {
		return
	}
	var req drone.BatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}

	d, err := h.coordinator.UpdateBattery(c.Request.Context(), id, *req.Level)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, drone.DroneResponse{Drone: d})
}

// -------------------------------------------------------------------------------------------------
func (h *Handler) Assign(c *gin.Context) {
	var req order.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	sub := c.GetString("sub")

	res, err := h.coordinator.Assign(ctx, req.OrderID, req.DroneID, sub)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	if !res.Replayed {
		events.Emit(ctx, h.publisher, events.ForOrder(events.OrderAssigned, res.Order, sub))
	}
	c.JSON(http.StatusOK, assignmentResponse(res))
}

func (h *Handler) AutoAssign(c *gin.Context) {
	var req order.AutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Validation(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	sub := c.GetString("sub")

	res, err := h.coordinator.AutoAssign(ctx, req.OrderID, sub)
	if err != nil {
		apperrors.ToHTTPError(c, err)
		return
	}
	if !res.Replayed {
		events.Emit(ctx, h.publisher, events.ForOrder(events.OrderAssigned, res.Order, sub))
	}
	c.JSON(http.StatusOK, assignmentResponse(res))
}

func assignmentResponse(res *Assignment) gin.H {
	return gin.H{"order": res.Order, "drone": res.Drone}
}
