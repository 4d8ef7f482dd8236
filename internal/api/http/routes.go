// Package httpapi wires the aggregation service and stores into Fiber
// handlers.
package httpapi

import (
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vashkevichs/citypulse/internal/aggregate"
	"github.com/vashkevichs/citypulse/internal/store"
	"github.com/vashkevichs/citypulse/internal/upstream"
)

var validate = validator.New()

// RequestID assigns a request id to every request and echoes it back in
// the X-Request-ID header.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals("requestID", id)
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *aggregate.Service, st *store.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/places/resolve", func(c *fiber.Ctx) error {
		res, err := service.Resolve(c.Context(), c.Query("q"))
		if err != nil {
			return mapError(err)
		}
		if res.Ambiguous() {
			return c.JSON(fiber.Map{"candidates": res.Candidates})
		}
		return c.JSON(res.Result)
	})

	v1.Get("/places/at", func(c *fiber.Ctx) error {
		coords, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.ResolveAt(c.Context(), coords.Lat, coords.Lon, coords.Name, coords.Country)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(result)
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		records, err := st.ListRecent(c.Context())
		if err != nil {
			return mapError(err)
		}
		if records == nil {
			records = []store.RecentSearch{}
		}
		return c.JSON(fiber.Map{"records": records})
	})

	v1.Delete("/history", func(c *fiber.Ctx) error {
		if err := st.ClearRecent(c.Context()); err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"cleared": true})
	})

	v1.Get("/favorites", func(c *fiber.Ctx) error {
		favorites, err := st.ListFavorites(c.Context())
		if err != nil {
			return mapError(err)
		}
		if favorites == nil {
			favorites = []store.Favorite{}
		}
		return c.JSON(fiber.Map{"favorites": favorites})
	})

	v1.Post("/favorites/toggle", func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		key, favorite, err := st.ToggleFavorite(c.Context(), req.Name, req.Country)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"identityKey": key, "isFavorite": favorite})
	})
}

// toggleRequest is the body of the favorite toggle endpoint.
type toggleRequest struct {
	Name    string `json:"name" validate:"required"`
	Country string `json:"country"`
}

// coordsQuery holds the validated coordinates (and optional carried-over
// identity) for the explicit-coordinate endpoint.
type coordsQuery struct {
	Lat     float64 `validate:"gte=-90,lte=90"`
	Lon     float64 `validate:"gte=-180,lte=180"`
	Name    string
	Country string
}

func parseCoordsQuery(c *fiber.Ctx) (coordsQuery, error) {
	var q coordsQuery

	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("invalid lon")
	}

	q.Lat = lat
	q.Lon = lon
	q.Name = c.Query("name")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// mapError translates service errors into HTTP responses. Upstream detail
// is surfaced only for fatal provider failures; anything unexpected is
// logged and answered generically.
func mapError(err error) error {
	switch {
	case errors.Is(err, aggregate.ErrEmptyQuery):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, aggregate.ErrNoMatch):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return fiber.NewError(fiber.StatusBadGateway, statusErr.Error())
	}

	log.Printf("unexpected error: %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "internal error")
}
