package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/markwire"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

// ListMarksHandler serves GET /api/marks/ in the envelope map screens expect.
func ListMarksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		marks, err := deps.Marks.List(c.UserContext())
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("list marks", "error", err)
			return errInternal(c, "could not load marks")
		}
		metrics.MarksListed.Inc()

		resp, err := markwire.EncodeList(marks)
		if err != nil {
			return errInternal(c, err.Error())
		}

		// Screens refetch right after submitting; never serve a stale list
		c.Set("Cache-Control", "no-cache")
		return c.JSON(resp)
	}
}

// CreateMarkHandler serves POST /api/mark/.
func CreateMarkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req markwire.SubmitRequest
		if err := c.BodyParser(&req); err != nil {
			metrics.MarksRejected.WithLabelValues("body").Inc()
			return errBadRequest(c, "invalid request body")
		}

		coord, err := markwire.DecodeCoordinate(req.Coordinate)
		if err != nil {
			metrics.MarksRejected.WithLabelValues("coordinate").Inc()
			return errBadRequest(c, `coordinate must be a JSON string like "{\"latitude\":1,\"longitude\":2}"`)
		}

		mark, err := deps.Marks.Create(c.UserContext(), coord, req.Message)
		switch {
		case errors.Is(err, domain.ErrInvalidCoordinate):
			metrics.MarksRejected.WithLabelValues("coordinate").Inc()
			return errBadRequest(c, err.Error())
		case errors.Is(err, domain.ErrMessageTooLong):
			metrics.MarksRejected.WithLabelValues("message").Inc()
			return errBadRequest(c, err.Error())
		case err != nil:
			LoggerFromCtx(c.UserContext()).Error("create mark", "error", err)
			return errInternal(c, "could not store mark")
		}
		metrics.MarksCreated.Inc()

		wm, err := markwire.FromDomain(*mark)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(markwire.SubmitResponse{Message: wm})
	}
}

// ListMarksPagedHandler returns marks with offset/limit pagination.
func ListMarksPagedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		marks, err := deps.Marks.List(c.UserContext())
		if err != nil {
			return errFromService(c, "list marks", err)
		}

		pg := pageFromQuery(c, len(marks))
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: slicePage(marks, pg), Pagination: pg})
	}
}

// GetMarkHandler returns a single mark by key.
func GetMarkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mark, err := deps.Marks.GetByKey(c.UserContext(), c.Params("key"))
		if err != nil {
			return errFromService(c, "get mark", err)
		}
		return c.JSON(mark)
	}
}

// NearbyMarksHandler returns marks within a radius of a point, nearest first.
func NearbyMarksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := queryCoordinate(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := c.QueryFloat("radius", 500)
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}

		marks, err := deps.Marks.Nearby(c.UserContext(), center, radius, c.QueryInt("limit", 50))
		if err != nil {
			return errFromService(c, "nearby marks", err)
		}
		return c.JSON(marks)
	}
}

// RegionMarksHandler returns marks visible in a map region.
func RegionMarksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := queryCoordinate(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		latDelta := c.QueryFloat("lat_delta", 0)
		lonDelta := c.QueryFloat("lon_delta", 0)
		if latDelta <= 0 || lonDelta <= 0 {
			return errBadRequest(c, "lat_delta and lon_delta must be positive")
		}

		region := domain.Region{
			Latitude:       center.Latitude,
			Longitude:      center.Longitude,
			LatitudeDelta:  latDelta,
			LongitudeDelta: lonDelta,
		}
		marks, err := deps.Marks.InRegion(c.UserContext(), region, c.QueryInt("limit", 200))
		if err != nil {
			return errFromService(c, "region marks", err)
		}
		return c.JSON(marks)
	}
}

// queryCoordinate reads and validates the lat and lon query parameters.
func queryCoordinate(c *fiber.Ctx) (domain.Coordinate, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return domain.Coordinate{}, errors.New("lat and lon are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid lat %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid lon %q", lonStr)
	}
	coord := domain.Coordinate{Latitude: lat, Longitude: lon}
	if !coord.Valid() {
		return domain.Coordinate{}, errors.New("lat must be in [-90,90] and lon in [-180,180]")
	}
	return coord, nil
}
