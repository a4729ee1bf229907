package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"driverapp/api"
)

// TokenSource supplies the current bearer token for authenticated calls.
// The session manager implements it.
type TokenSource interface {
	Token() (token string, ok bool)
}

// Gateway exposes the delivery service's operations. Each method is a
// single stateless request/response pair; lifecycle interpretation and
// cache consistency belong to the Coordinator.
type Gateway struct {
	client *api.Client
	tokens TokenSource
}

// NewGateway creates a Gateway over the given delivery-service client.
func NewGateway(client *api.Client, tokens TokenSource) *Gateway {
	return &Gateway{client: client, tokens: tokens}
}

func (g *Gateway) token() string {
	token, ok := g.tokens.Token()
	if !ok {
		return ""
	}
	return token
}

// ListByStatus returns the driver's deliveries filtered by status. An
// empty status returns everything.
func (g *Gateway) ListByStatus(ctx context.Context, status Status) (List, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": []string{string(status)}}
	}
	body, err := g.client.Do(ctx, http.MethodGet, "/delivery", g.token(), query, nil)
	if err != nil {
		return List{}, fmt.Errorf("delivery: list by status %q: %w", status, err)
	}
	var response List
	if err := json.Unmarshal(body, &response); err != nil {
		return List{}, fmt.Errorf("delivery: parse list response: %w", err)
	}
	return response, nil
}

// Details returns the full view of one delivery.
func (g *Gateway) Details(ctx context.Context, deliveryID string) (Delivery, error) {
	body, err := g.client.Do(ctx, http.MethodGet, "/delivery/"+deliveryID+"/details", g.token(), nil, nil)
	if err != nil {
		return Delivery{}, fmt.Errorf("delivery: details for %s: %w", deliveryID, err)
	}
	var response struct {
		Delivery Delivery `json:"delivery"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return Delivery{}, fmt.Errorf("delivery: parse details response: %w", err)
	}
	return response.Delivery, nil
}

// Accept accepts the assignment offer for a delivery.
func (g *Gateway) Accept(ctx context.Context, deliveryID string) error {
	if _, err := g.client.Do(ctx, http.MethodPost, "/delivery/"+deliveryID+"/accept", g.token(), nil, struct{}{}); err != nil {
		return fmt.Errorf("delivery: accept %s: %w", deliveryID, err)
	}
	return nil
}

// Decline turns down the assignment offer. The reason is optional and
// forwarded verbatim.
func (g *Gateway) Decline(ctx context.Context, deliveryID, reason string) error {
	request := struct {
		Reason string `json:"reason,omitempty"`
	}{Reason: reason}
	if _, err := g.client.Do(ctx, http.MethodPost, "/delivery/"+deliveryID+"/decline", g.token(), nil, request); err != nil {
		return fmt.Errorf("delivery: decline %s: %w", deliveryID, err)
	}
	return nil
}

// Pickup marks the delivery as picked up from the restaurant.
func (g *Gateway) Pickup(ctx context.Context, params PickupParams) error {
	if _, err := g.client.Do(ctx, http.MethodPost, "/delivery/pickup", g.token(), nil, params); err != nil {
		return fmt.Errorf("delivery: pickup %s: %w", params.DeliveryID, err)
	}
	return nil
}

// Complete marks the delivery as handed to the customer.
func (g *Gateway) Complete(ctx context.Context, params PickupParams) error {
	if _, err := g.client.Do(ctx, http.MethodPost, "/delivery/complete", g.token(), nil, params); err != nil {
		return fmt.Errorf("delivery: complete %s: %w", params.DeliveryID, err)
	}
	return nil
}

// SetAvailability flips whether the driver is accepting new assignments.
// Returns the server-confirmed value.
func (g *Gateway) SetAvailability(ctx context.Context, isAvailable bool) (bool, error) {
	request := struct {
		IsAvailable bool `json:"isAvailable"`
	}{IsAvailable: isAvailable}
	body, err := g.client.Do(ctx, http.MethodPatch, "/drivers/me/availability", g.token(), nil, request)
	if err != nil {
		return false, fmt.Errorf("delivery: set availability: %w", err)
	}
	var response struct {
		IsAvailable bool `json:"isAvailable"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("delivery: parse availability response: %w", err)
	}
	return response.IsAvailable, nil
}

// Stats returns the driver's aggregate counters.
func (g *Gateway) Stats(ctx context.Context) (DriverStats, error) {
	body, err := g.client.Do(ctx, http.MethodGet, "/delivery/stats", g.token(), nil, nil)
	if err != nil {
		return DriverStats{}, fmt.Errorf("delivery: stats: %w", err)
	}
	var response struct {
		Stats DriverStats `json:"stats"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return DriverStats{}, fmt.Errorf("delivery: parse stats response: %w", err)
	}
	return response.Stats, nil
}
