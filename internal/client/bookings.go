package client

import (
	"context"
	"net/http"
	"net/url"

	"callbook/internal/models"
)

// Typed wrappers for the legacy generic-booking endpoints.

// CreateBooking books a generic appointment slot.
func (c *Client) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingRecord, error) {
	var rec models.BookingRecord
	if err := c.Send(ctx, http.MethodPost, "/bookings", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetBooking fetches a booking by ID.
func (c *Client) GetBooking(ctx context.Context, id string) (*models.BookingRecord, error) {
	var rec models.BookingRecord
	if err := c.Send(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListBookings fetches bookings matching the given filters.
func (c *Client) ListBookings(ctx context.Context, filters url.Values) ([]models.BookingRecord, error) {
	path := "/bookings"
	if len(filters) > 0 {
		path += "?" + filters.Encode()
	}
	var recs []models.BookingRecord
	if err := c.Send(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// UpdateBooking applies a partial update to a booking.
func (c *Client) UpdateBooking(ctx context.Context, id string, fields map[string]interface{}) (*models.BookingRecord, error) {
	var rec models.BookingRecord
	if err := c.Send(ctx, http.MethodPut, "/bookings/"+url.PathEscape(id), fields, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CancelBooking cancels a booking via the status-update path.
func (c *Client) CancelBooking(ctx context.Context, id string) (*models.BookingRecord, error) {
	return c.UpdateBooking(ctx, id, map[string]interface{}{"status": "cancelled"})
}

// DeleteBooking removes a booking outright.
func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.Send(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil)
}
