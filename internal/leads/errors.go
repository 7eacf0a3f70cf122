package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrInvalidDelivery is returned for deliveries without a session or status
	ErrInvalidDelivery = errors.New("leads: invalid delivery")
)
