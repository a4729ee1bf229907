package sim

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"driverapp/delivery"
)

func (s *Server) handleList(c *gin.Context) {
	driverID := c.GetString("driverID")
	status := delivery.Status(c.Query("status"))

	s.mu.Lock()
	defer s.mu.Unlock()
	deliveries := []delivery.Delivery{}
	for _, d := range s.deliveries {
		if d.DriverID != driverID {
			continue
		}
		// Declined deliveries are reassigned and leave this driver's set.
		if d.AcceptanceStatus == delivery.AcceptanceDeclined {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		deliveries = append(deliveries, *d)
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries, "total": len(deliveries)})
}

func (s *Server) handleDetails(c *gin.Context) {
	d, ok := s.visibleDelivery(c.GetString("driverID"), c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "not_found", "no such delivery")
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery": d})
}

func (s *Server) handleAccept(c *gin.Context) {
	driverID := c.GetString("driverID")
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok || d.DriverID != driverID {
		fail(c, http.StatusNotFound, "not_found", "no such delivery")
		return
	}
	if err := delivery.CanApply(delivery.ActionAccept, *d); err != nil {
		fail(c, http.StatusConflict, "invalid_transition", err.Error())
		return
	}
	d.AcceptanceStatus = delivery.AcceptanceAccepted
	c.JSON(http.StatusOK, gin.H{"deliveryId": id})
}

func (s *Server) handleDecline(c *gin.Context) {
	driverID := c.GetString("driverID")
	id := c.Param("id")
	var request struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&request)

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok || d.DriverID != driverID {
		fail(c, http.StatusNotFound, "not_found", "no such delivery")
		return
	}
	if err := delivery.CanApply(delivery.ActionDecline, *d); err != nil {
		fail(c, http.StatusConflict, "invalid_transition", err.Error())
		return
	}
	d.AcceptanceStatus = delivery.AcceptanceDeclined
	s.logger.Info("delivery declined, reassigning", "delivery_id", id, "reason", request.Reason)
	c.JSON(http.StatusOK, gin.H{"deliveryId": id})
}

func (s *Server) handlePickup(c *gin.Context) {
	s.applyHandoff(c, delivery.ActionPickup)
}

func (s *Server) handleComplete(c *gin.Context) {
	s.applyHandoff(c, delivery.ActionComplete)
}

// applyHandoff covers pickup and complete: same request shape, same
// cross-checks of the redundant orderId/driverId against the delivery.
func (s *Server) applyHandoff(c *gin.Context, action delivery.Action) {
	driverID := c.GetString("driverID")
	var params delivery.PickupParams
	if err := c.ShouldBindJSON(&params); err != nil || params.DeliveryID == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "deliveryId, orderId and driverId are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[params.DeliveryID]
	if !ok || d.DriverID != driverID {
		fail(c, http.StatusNotFound, "not_found", "no such delivery")
		return
	}
	if params.OrderID != d.OrderID || params.DriverID != d.DriverID {
		fail(c, http.StatusUnprocessableEntity, "identifier_mismatch",
			fmt.Sprintf("order/driver identifiers do not match delivery %s", d.DeliveryID))
		return
	}
	if err := delivery.CanApply(action, *d); err != nil {
		fail(c, http.StatusConflict, "invalid_transition", err.Error())
		return
	}

	now := time.Now().UTC()
	switch action {
	case delivery.ActionPickup:
		d.Status = delivery.StatusPickedUp
		d.PickedUpAt = &now
		c.JSON(http.StatusOK, gin.H{"message": "delivery picked up"})
	case delivery.ActionComplete:
		d.Status = delivery.StatusCompleted
		d.ActualDeliveryTime = &now
		s.completed[driverID]++
		c.JSON(http.StatusOK, gin.H{"message": "delivery completed"})
	}
}

func (s *Server) handleAvailability(c *gin.Context) {
	driverID := c.GetString("driverID")
	var request struct {
		IsAvailable *bool `json:"isAvailable"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.IsAvailable == nil {
		fail(c, http.StatusBadRequest, "invalid_request", "isAvailable is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.available[driverID] = *request.IsAvailable
	if !*request.IsAvailable {
		// An offline driver's unanswered offers go back to dispatch.
		for _, d := range s.deliveries {
			if d.DriverID == driverID && d.AcceptanceStatus == delivery.AcceptancePending {
				d.AcceptanceStatus = delivery.AcceptanceDeclined
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"isAvailable": *request.IsAvailable})
}

func (s *Server) handleStats(c *gin.Context) {
	driverID := c.GetString("driverID")

	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, d := range s.deliveries {
		if d.DriverID == driverID && d.AcceptanceStatus != delivery.AcceptanceDeclined {
			total++
		}
	}
	completed := s.completed[driverID]
	c.JSON(http.StatusOK, gin.H{"stats": gin.H{
		"totalDeliveries": total,
		"completedToday":  completed,
		"averageRating":   "4.8",
		"earnings":        fmt.Sprintf("$%.2f", float64(completed)*7.25),
	}})
}

func (s *Server) visibleDelivery(driverID, id string) (delivery.Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok || d.DriverID != driverID || d.AcceptanceStatus == delivery.AcceptanceDeclined {
		return delivery.Delivery{}, false
	}
	return *d, true
}
