package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/consensus"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// VerifyRequest is the POST /api/verify body
type VerifyRequest struct {
	Image      string          `json:"image"`
	ManualKeys app.Credentials `json:"manualKeys"`
}

// VerifyResponse is the single-voter probe result. Success is false when
// the voter could not be reached, in which case Vote is false.
type VerifyResponse struct {
	Vote     bool   `json:"vote"`
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
}

// ReportRequest is the POST /api/report body
type ReportRequest struct {
	Image       string          `json:"image"`
	Lat         *float64        `json:"lat"`
	Lng         *float64        `json:"lng"`
	Description string          `json:"description"`
	CapturedAt  *time.Time      `json:"capturedAt,omitempty"`
	ManualKeys  app.Credentials `json:"manualKeys"`
}

// ReportResponse is the consensus outcome of a report
type ReportResponse struct {
	Status      consensus.Status   `json:"status"`
	Confidence  int                `json:"confidence"`
	Method      consensus.Method   `json:"method"`
	Explanation string             `json:"explanation"`
	Sighting    *sighting.Sighting `json:"sighting,omitempty"`
}

// VerifyProbe handles POST /api/verify
func (c *Controller) VerifyProbe(ctx echo.Context) error {
	var req VerifyRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, MsgInvalidRequest, http.StatusBadRequest)
	}

	img, err := consensus.DecodeDataURL(req.Image, c.app.Settings.Consensus.MaxImageBytes)
	if err != nil {
		return c.HandleError(ctx, err, validationMessage(err, MsgInvalidRequest), http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	voter, err := c.app.SecondaryVoter(reqCtx, c.app.Credentials().Override(req.ManualKeys))
	if err != nil {
		return c.HandleError(ctx, err, MsgVerificationUnavailable, http.StatusServiceUnavailable)
	}

	verdict, err := voter.Vote(reqCtx, img)
	if err != nil {
		c.log.Warn("Verification probe failed, treating as NO")
		return ctx.JSON(http.StatusOK, VerifyResponse{Provider: voter.Name()})
	}
	return ctx.JSON(http.StatusOK, VerifyResponse{
		Vote:     verdict.IsBearSign,
		Provider: voter.Name(),
		Success:  true,
	})
}

// Report handles POST /api/report. Accepted photos become user sightings
// at the head of the stored snapshot.
func (c *Controller) Report(ctx echo.Context) error {
	var req ReportRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, MsgInvalidRequest, http.StatusBadRequest)
	}

	if req.Lat == nil || req.Lng == nil || !sighting.IsFinite(*req.Lat) || !sighting.IsFinite(*req.Lng) {
		return c.HandleError(ctx, nil, "lat and lng are required", http.StatusBadRequest)
	}
	if !c.app.Bounds().Contains(*req.Lat, *req.Lng) {
		return c.HandleError(ctx, nil, "Location is outside the supported area", http.StatusBadRequest)
	}

	now := c.now()
	if err := consensus.CheckPhotoAge(req.CapturedAt, now, c.app.Settings.Consensus.MaxPhotoAge); err != nil {
		return c.HandleError(ctx, err, validationMessage(err, MsgInvalidRequest), http.StatusBadRequest)
	}

	img, err := consensus.DecodeDataURL(req.Image, c.app.Settings.Consensus.MaxImageBytes)
	if err != nil {
		return c.HandleError(ctx, err, validationMessage(err, MsgInvalidRequest), http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	engine, err := c.app.Verifier(reqCtx, c.app.Credentials().Override(req.ManualKeys))
	if err != nil {
		return c.HandleError(ctx, err, MsgVerificationUnavailable, http.StatusServiceUnavailable)
	}

	decision, err := engine.Verify(reqCtx, img)
	if err != nil {
		if errors.Is(err, consensus.ErrVerificationUnavailable) {
			return c.HandleError(ctx, err, MsgVerificationUnavailable, http.StatusServiceUnavailable)
		}
		return c.HandleError(ctx, err, MsgInternal, http.StatusInternalServerError)
	}

	resp := ReportResponse{
		Status:      decision.Status,
		Confidence:  decision.Confidence,
		Method:      decision.Method,
		Explanation: decision.Explanation,
	}
	if decision.Accepted() {
		sg := consensus.NewUserSighting(decision, consensus.Report{
			Lat:         *req.Lat,
			Lng:         *req.Lng,
			Description: req.Description,
		}, now)
		c.app.Store.Prepend(sg)
		c.app.Notifier.NotifyReport(sg)
		resp.Sighting = &sg
	}
	return ctx.JSON(http.StatusOK, resp)
}
