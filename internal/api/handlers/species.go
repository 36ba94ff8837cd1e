package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/bearwatch/internal/sighting"
)

// CoordinateRequest is a body holding one coordinate
type CoordinateRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (r CoordinateRequest) point() (sighting.Point, bool) {
	if r.Lat == nil || r.Lng == nil || !sighting.IsFinite(*r.Lat) || !sighting.IsFinite(*r.Lng) {
		return sighting.Point{}, false
	}
	if *r.Lat < -90 || *r.Lat > 90 || *r.Lng < -180 || *r.Lng > 180 {
		return sighting.Point{}, false
	}
	return sighting.Point{Lat: *r.Lat, Lng: *r.Lng}, true
}

// AnalyzeSpecies handles POST /api/analyze-species
func (c *Controller) AnalyzeSpecies(ctx echo.Context) error {
	var req CoordinateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, MsgInvalidRequest, http.StatusBadRequest)
	}
	p, ok := req.point()
	if !ok {
		return c.HandleError(ctx, nil, "lat and lng are required", http.StatusBadRequest)
	}
	return ctx.JSON(http.StatusOK, c.app.Species.Advise(ctx.Request().Context(), p.Lat, p.Lng))
}

// Risk handles POST /api/risk against the stored snapshot
func (c *Controller) Risk(ctx echo.Context) error {
	var req CoordinateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, MsgInvalidRequest, http.StatusBadRequest)
	}
	p, ok := req.point()
	if !ok {
		return c.HandleError(ctx, nil, "lat and lng are required", http.StatusBadRequest)
	}

	snap, _ := c.app.Store.Get()
	return ctx.JSON(http.StatusOK, c.app.Risk.Evaluate(snap, p, c.now()))
}
