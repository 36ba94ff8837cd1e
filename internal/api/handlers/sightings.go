package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/bearwatch/internal/aggregator"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/provider"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// ScanRequest is the POST /api/scan body. Both fields are optional.
type ScanRequest struct {
	Location   string          `json:"location"`
	ManualKeys app.Credentials `json:"manualKeys"`
}

// CountsResponse carries per-source record counts. The source keys are the
// names the map client uses: grok for social search, gemini for news.
type CountsResponse struct {
	Grok   int `json:"grok"`
	Gemini int `json:"gemini"`
	User   int `json:"user"`
}

// SnapshotResponse is the body of scan and sightings responses
type SnapshotResponse struct {
	Hotspots  []sighting.Sighting `json:"hotspots"`
	Timestamp int64               `json:"timestamp"`
	Counts    CountsResponse      `json:"counts"`
	// Empty marks a successful scan that found nothing
	Empty bool `json:"empty"`
	// AgeSeconds is set on cached snapshots
	AgeSeconds *float64 `json:"ageSeconds,omitempty"`
}

func newSnapshotResponse(snap sighting.Snapshot) SnapshotResponse {
	hotspots := snap.Sightings
	if hotspots == nil {
		hotspots = []sighting.Sighting{}
	}
	return SnapshotResponse{
		Hotspots:  hotspots,
		Timestamp: snap.Timestamp,
		Counts: CountsResponse{
			Grok:   snap.Counts.Social,
			Gemini: snap.Counts.News,
			User:   snap.Counts.User,
		},
		Empty: snap.Empty(),
	}
}

// GetSightings handles GET /api/sightings. It never triggers a scan.
func (c *Controller) GetSightings(ctx echo.Context) error {
	snap, ok := c.app.Store.Get()
	if !ok {
		return ctx.JSON(http.StatusOK, newSnapshotResponse(sighting.Snapshot{}))
	}

	resp := newSnapshotResponse(snap)
	age := c.now().Sub(snap.Time()).Seconds()
	if age < 0 {
		age = 0
	}
	resp.AgeSeconds = &age
	return ctx.JSON(http.StatusOK, resp)
}

// Scan handles POST /api/scan
func (c *Controller) Scan(ctx echo.Context) error {
	var req ScanRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, MsgInvalidRequest, http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	creds := c.app.Credentials().Override(req.ManualKeys)
	scanner, err := c.app.Scanner(reqCtx, creds)
	if err != nil {
		if errors.Is(err, aggregator.ErrNoCredentials) {
			return c.HandleError(ctx, err, MsgMissingKeys, http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, MsgInternal, http.StatusInternalServerError)
	}

	snap, err := scanner.Scan(reqCtx, provider.Query{
		Location:   req.Location,
		Now:        c.now(),
		WindowDays: c.app.Settings.Scan.WindowDays,
	})
	switch {
	case errors.Is(err, aggregator.ErrScanTimeout):
		return c.HandleError(ctx, err, MsgScanTimeout, http.StatusGatewayTimeout)
	case errors.Is(err, aggregator.ErrNoCredentials):
		return c.HandleError(ctx, err, MsgMissingKeys, http.StatusBadRequest)
	case err != nil:
		return c.HandleError(ctx, err, MsgInternal, http.StatusInternalServerError)
	}

	c.app.Notifier.NotifySnapshot(snap)
	return ctx.JSON(http.StatusOK, newSnapshotResponse(snap))
}
