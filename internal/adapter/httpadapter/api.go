package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/routing"
	"github.com/couchcryptid/shelter-routing-service/internal/shelter"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RouteResolver computes a route and reports which branch produced it.
type RouteResolver interface {
	Resolve(ctx context.Context, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) routing.Outcome
}

// RouteSourceHeader tells API clients whether a route came from the road
// network or the local fallback.
const RouteSourceHeader = "X-Route-Source"

// APIHandler serves the shelter and route JSON API.
type APIHandler struct {
	shelters domain.ShelterDirectory
	routes   RouteResolver
	logger   *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(shelters domain.ShelterDirectory, routes RouteResolver, logger *slog.Logger) *APIHandler {
	return &APIHandler{shelters: shelters, routes: routes, logger: logger}
}

// Register mounts the API routes on the given group.
func (h *APIHandler) Register(r *gin.RouterGroup) {
	v1 := r.Group("/v1")
	{
		v1.GET("/shelters", h.ListShelters)
		v1.POST("/routes", h.CreateRoute)
		v1.GET("/routes/nearest", h.NearestRoute)
	}
}

type routeRequest struct {
	From      *domain.Coordinates `json:"from" binding:"required"`
	ShelterID string              `json:"shelter_id" binding:"required"`
	Mode      string              `json:"mode"`
}

// ListShelters returns all shelters ranked by distance from ?lat=&lng=.
func (h *APIHandler) ListShelters(c *gin.Context) {
	from, ok := queryPosition(c)
	if !ok {
		return
	}

	shelters, err := h.shelters.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelters": shelter.Rank(from, shelters)})
}

// CreateRoute calculates a route from a position to a named shelter.
func (h *APIHandler) CreateRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validatePosition(*req.From); err != nil {
		badRequest(c, err.Error())
		return
	}
	mode, err := domain.ParseTransportMode(req.Mode)
	if err != nil {
		h.fail(c, err)
		return
	}

	target, err := h.shelters.Get(c.Request.Context(), req.ShelterID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondWithRoute(c, *req.From, target, mode)
}

// NearestRoute calculates a route to the closest shelter from ?lat=&lng=&mode=.
func (h *APIHandler) NearestRoute(c *gin.Context) {
	from, ok := queryPosition(c)
	if !ok {
		return
	}
	mode, err := domain.ParseTransportMode(c.Query("mode"))
	if err != nil {
		h.fail(c, err)
		return
	}

	nearest, err := shelter.Nearest(c.Request.Context(), h.shelters, from)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondWithRoute(c, from, nearest.Shelter, mode)
}

func (h *APIHandler) respondWithRoute(c *gin.Context, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) {
	out := h.routes.Resolve(c.Request.Context(), from, to, mode)
	c.Header(RouteSourceHeader, string(out.Source))
	c.JSON(http.StatusOK, out.Route)
}

func (h *APIHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrShelterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransportMode):
		badRequest(c, err.Error())
	default:
		h.logger.Error("api request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryPosition parses ?lat=&lng= and writes a 400 when they are unusable.
func queryPosition(c *gin.Context) (domain.Coordinates, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		badRequest(c, "lat and lng query parameters are required numbers")
		return domain.Coordinates{}, false
	}
	pos := domain.Coordinates{Lat: lat, Lng: lng}
	if err := validatePosition(pos); err != nil {
		badRequest(c, err.Error())
		return domain.Coordinates{}, false
	}
	return pos, true
}

var errOutOfRange = errors.New("coordinates out of range")

func validatePosition(p domain.Coordinates) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return errOutOfRange
	}
	return nil
}

// RequestIDHeader carries the caller's request id, or one generated per request.
const RequestIDHeader = "X-Request-ID"

// requestLogger tags each API request with an id and logs it at debug level.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Next()
		logger.Debug("api request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
