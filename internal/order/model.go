package order

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusAssigned  Status = "assigned"
	StatusInTransit Status = "in-transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPaypal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCash         PaymentMethod = "cash"
)

type Item struct {
	Name        string  `json:"name" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	Weight      float64 `json:"weight" validate:"gte=0"`
	Description string  `json:"description,omitempty"`
}

type Address struct {
	Address      string  `json:"address" validate:"required"`
	Lat          float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng          float64 `json:"lng" validate:"gte=-180,lte=180"`
	ContactName  string  `json:"contactName,omitempty"`
	ContactPhone string  `json:"contactPhone,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
}

type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

type Order struct {
	ID                    uuid.UUID      `json:"id"`
	TrackingNumber        string         `json:"trackingNumber"`
	CustomerID            string         `json:"customerId"`
	CustomerName          string         `json:"customerName"`
	CustomerEmail         string         `json:"customerEmail"`
	CustomerPhone         string         `json:"customerPhone,omitempty"`
	Status                Status         `json:"status"`
	Priority              Priority       `json:"priority"`
	Items                 []Item         `json:"items"`
	TotalWeight           float64        `json:"totalWeight"`
	EstimatedValue        float64        `json:"estimatedValue"`
	SpecialInstructions   string         `json:"specialInstructions,omitempty"`
	PickupLocation        Address        `json:"pickupLocation"`
	DeliveryLocation      Address        `json:"deliveryLocation"`
	DroneID               *uuid.UUID     `json:"droneId,omitempty"`
	OperatorID            *string        `json:"operatorId,omitempty"`
	DeliveryStaffID       *string        `json:"deliveryStaffId,omitempty"`
	RequestedDeliveryTime *time.Time     `json:"requestedDeliveryTime,omitempty"`
	ActualPickupTime      *time.Time     `json:"actualPickupTime,omitempty"`
	ActualDeliveryTime    *time.Time     `json:"actualDeliveryTime,omitempty"`
	Price                 float64        `json:"price"`
	PaymentStatus         PaymentStatus  `json:"paymentStatus"`
	PaymentMethod         *PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentID             *string        `json:"paymentId,omitempty"`
	CurrentLocation       *Position      `json:"currentLocation,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
	CompletedAt           *time.Time     `json:"completedAt,omitempty"`
	CancelledAt           *time.Time     `json:"cancelledAt,omitempty"`
	CancellationReason    *string        `json:"cancellationReason,omitempty"`
}

// Filter narrows an order listing. Nil fields are ignored; DateFrom and
// DateTo bound CreatedAt inclusively.
type Filter struct {
	CustomerID *string
	Status     []Status
	DroneID    *uuid.UUID
	OperatorID *string
	StaffID    *string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Stats is the dashboard summary computed over all orders.
type Stats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	InTransit    int     `json:"inTransit"`
	Delivered    int     `json:"delivered"`
	Cancelled    int     `json:"cancelled"`
	TodayRevenue float64 `json:"todayRevenue"`
}
