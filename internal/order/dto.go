package order

import (
	"time"

	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	CustomerID            string         `json:"customerId" validate:"required"`
	CustomerName          string         `json:"customerName" validate:"required"`
	CustomerEmail         string         `json:"customerEmail" validate:"required,email"`
	CustomerPhone         string         `json:"customerPhone,omitempty"`
	Items                 []Item         `json:"items" validate:"required,min=1,dive"`
	SpecialInstructions   string         `json:"specialInstructions,omitempty"`
	Priority              Priority       `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	PickupLocation        Address        `json:"pickupLocation" validate:"required"`
	DeliveryLocation      Address        `json:"deliveryLocation" validate:"required"`
	RequestedDeliveryTime *time.Time     `json:"requestedDeliveryTime,omitempty"`
	PaymentMethod         *PaymentMethod `json:"paymentMethod,omitempty" validate:"omitempty,oneof=credit_card debit_card paypal bank_transfer cash"`
}

type AssignRequest struct {
	OrderID uuid.UUID `json:"orderId" binding:"required"`
	DroneID uuid.UUID `json:"droneId" binding:"required"`
}

type AutoAssignRequest struct {
	OrderID uuid.UUID `json:"orderId" binding:"required"`
}

type TransitionRequest struct {
	TargetStatus       string     `json:"targetStatus" binding:"required"`
	Reason             string     `json:"reason,omitempty"`
	ActualDeliveryTime *time.Time `json:"actualDeliveryTime,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type PaymentRequest struct {
	PaymentStatus string  `json:"paymentStatus" binding:"required"`
	PaymentID     *string `json:"paymentId,omitempty"`
}

type StaffRequest struct {
	StaffID string `json:"staffId" binding:"required"`
}

type LocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

type OrderResponse struct {
	Order *Order `json:"order"`
}

type OrdersResponse struct {
	Orders []*Order `json:"orders"`
}

type StatsResponse struct {
	Stats Stats `json:"stats"`
}
