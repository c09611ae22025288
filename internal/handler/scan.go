package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/goevery/carwash-notify/internal/ierr"
	"github.com/goevery/carwash-notify/internal/metrics"
	"github.com/goevery/carwash-notify/internal/persistence"
	"github.com/goevery/carwash-notify/internal/registry"
)

type LicensePlateScanRequest struct {
	LicensePlate     string `json:"licensePlate" validate:"required"`
	WashingStationId string `json:"washingStationId" validate:"required"`
}

type LicensePlateScanResponse struct {
	Message       string `json:"message"`
	UserId        string `json:"userId"`
	UserConnected bool   `json:"userConnected"`
}

type LicensePlateScanHandlerInterface interface {
	Handle(ctx context.Context, req LicensePlateScanRequest) (LicensePlateScanResponse, error)
}

// LicensePlateScanHandler turns a plate seen at a station into a push to the
// membership owner. Delivery misses are a normal outcome, not an error.
type LicensePlateScanHandler struct {
	requestValidator *RequestValidator
	store            persistence.Store
	registry         registry.Registry

	now func() time.Time
}

func NewLicensePlateScanHandler(
	requestValidator *RequestValidator,
	store persistence.Store,
	registry registry.Registry,
) *LicensePlateScanHandler {
	return &LicensePlateScanHandler{
		requestValidator,
		store,
		registry,
		time.Now,
	}
}

func (h *LicensePlateScanHandler) Handle(ctx context.Context, req LicensePlateScanRequest) (LicensePlateScanResponse, error) {
	err := h.requestValidator.Validate(req)
	if err != nil {
		metrics.RecordScan("invalid")
		return LicensePlateScanResponse{}, err
	}

	station, err := h.store.GetWashingStation(ctx, req.WashingStationId)
	if errors.Is(err, persistence.ErrNotFound) {
		metrics.RecordScan("station_not_found")
		return LicensePlateScanResponse{},
			ierr.Newf(ierr.ErrorCodeNotFound, "washing station not found")
	}
	if err != nil {
		return LicensePlateScanResponse{}, err
	}

	// Only active memberships are looked up; an inactive one reports not
	// found even when it is also expired.
	membership, err := h.store.FindActiveMembershipByPlate(ctx, req.LicensePlate)
	if errors.Is(err, persistence.ErrNotFound) {
		metrics.RecordScan("membership_not_found")
		return LicensePlateScanResponse{},
			ierr.Newf(ierr.ErrorCodeNotFound, "no active membership found for license plate")
	}
	if err != nil {
		return LicensePlateScanResponse{}, err
	}

	now := h.now()

	if membership.IsExpired(now) {
		metrics.RecordScan("membership_expired")
		return LicensePlateScanResponse{},
			ierr.Newf(ierr.ErrorCodeFailedPrecondition, "membership has expired")
	}

	payload := envelope.LicensePlateScanned{
		LicensePlate: req.LicensePlate,
		WashingStation: envelope.StationRef{
			ID:      station.ID,
			Name:    station.Name,
			Address: station.Address,
		},
		Membership: envelope.MembershipRef{
			ID:   membership.ID,
			Name: membership.Name,
		},
		ScannedAt: now.UTC(),
	}

	prompt := fmt.Sprintf("Your car %s was detected at %s. Start a wash now?", req.LicensePlate, station.Name)

	message, err := envelope.New(payload, prompt, now)
	if err != nil {
		return LicensePlateScanResponse{}, err
	}

	userConnected := h.registry.SendToUser(membership.UserID, message)

	response := LicensePlateScanResponse{
		Message:       "license plate scan processed, notification sent",
		UserId:        membership.UserID,
		UserConnected: userConnected,
	}

	if !userConnected {
		response.Message = "license plate scan processed, user is not connected"
	}

	metrics.RecordScan("processed")

	return response, nil
}
