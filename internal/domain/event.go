package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseRouteRequest decodes and validates a route request message. A missing
// request ID falls back to the message key.
func ParseRouteRequest(raw RawEvent) (RouteRequest, error) {
	var req RouteRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return RouteRequest{}, fmt.Errorf("parse route request: %w", err)
	}

	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	req.ShelterID = strings.TrimSpace(req.ShelterID)
	if req.ShelterID == "" {
		return RouteRequest{}, errors.New("parse route request: shelter_id is required")
	}

	mode, err := ParseTransportMode(string(req.Mode))
	if err != nil {
		return RouteRequest{}, fmt.Errorf("parse route request: %w", err)
	}
	req.Mode = mode
	return req, nil
}

// SerializeRouteEvent marshals a route event for the sink topic.
func SerializeRouteEvent(event RouteEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize route event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(event.RequestID),
		Value: data,
		Headers: map[string]string{
			"transport_mode": string(event.Route.TransportMode),
			"route_source":   string(event.Source),
			"computed_at":    event.ComputedAt.Format(time.RFC3339),
		},
	}, nil
}
