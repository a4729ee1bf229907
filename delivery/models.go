package delivery

import "time"

// Status is the server-assigned progress of a delivery.
type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusCompleted Status = "completed"
)

// AcceptanceStatus records whether the driver has responded to the
// assignment offer. Declined deliveries are terminal and disappear from
// this driver's lists once the server reassigns them.
type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceDeclined AcceptanceStatus = "declined"
)

// Address is a denormalized postal address snapshot, display-only.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// OrderItem is a display-only snapshot of one line of the fulfilled
// order. Never written back.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Delivery is one delivery assignment as the delivery service reports it.
// The restaurant/customer fields are denormalized snapshots for display;
// the server remains authoritative for all of them.
type Delivery struct {
	DeliveryID       string           `json:"deliveryId"`
	OrderID          string           `json:"orderId"`
	DriverID         string           `json:"driverId"`
	Status           Status           `json:"status"`
	AcceptanceStatus AcceptanceStatus `json:"acceptanceStatus"`

	DriverName   string `json:"driverName,omitempty"`
	DriverPhone  string `json:"driverPhone,omitempty"`
	Vehicle      string `json:"vehicle,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`

	AssignedAt            time.Time  `json:"assignedAt"`
	PickedUpAt            *time.Time `json:"pickedUpAt,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actualDeliveryTime,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`

	DeliveryAddress   *Address    `json:"deliveryAddress,omitempty"`
	RestaurantAddress *Address    `json:"restaurantAddress,omitempty"`
	CustomerName      string      `json:"customerName,omitempty"`
	CustomerPhone     string      `json:"customerPhone,omitempty"`
	Items             []OrderItem `json:"items,omitempty"`
}

// List is a page of deliveries for one status filter.
type List struct {
	Deliveries []Delivery `json:"deliveries"`
	Total      int        `json:"total"`
}

// DriverStats aggregates delivery counts and earnings for the driver.
// Rating and earnings arrive pre-formatted from the server.
type DriverStats struct {
	TotalDeliveries int    `json:"totalDeliveries"`
	CompletedToday  int    `json:"completedToday"`
	AverageRating   string `json:"averageRating"`
	Earnings        string `json:"earnings"`
}

// PickupParams carries the identifiers for a pickup or completion call.
// OrderID and DriverID are sent redundantly with DeliveryID; the server
// decides whether they agree.
type PickupParams struct {
	DeliveryID string `json:"deliveryId"`
	OrderID    string `json:"orderId"`
	DriverID   string `json:"driverId"`
}
