package deliveries

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/api/middleware"
	"github.com/sabzico/fulfillment-backend/api/responses"
	"github.com/sabzico/fulfillment-backend/api/validators"
	internaldeliveries "github.com/sabzico/fulfillment-backend/internal/deliveries"
	internalorders "github.com/sabzico/fulfillment-backend/internal/orders"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

// PartnerList returns the deliveries assigned to the calling partner.
func PartnerList(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.PartnerID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "partner context required"))
			return
		}

		var status *enums.DeliveryStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseDeliveryStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListPartnerDeliveries(r.Context(), *actor.PartnerID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one delivery after checking the caller may see it.
func Detail(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryID, err := parseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.GetDelivery(r.Context(), deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch {
		case actor.Role == enums.ActorRoleAdmin:
		case actor.PartnerID != nil && delivery.PartnerID != nil && *delivery.PartnerID == *actor.PartnerID:
		case actor.VendorID != nil && delivery.VendorID == *actor.VendorID:
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "delivery does not belong to caller"))
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

type advanceRequest struct {
	Status string `json:"status" validate:"required"`
}

// PartnerAdvance moves a delivery one step along its chain.
func PartnerAdvance(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryID, err := parseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseDeliveryStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		if err := svc.Advance(r.Context(), deliveryID, next, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type verifyOtpRequest struct {
	Otp string `json:"otp" validate:"required,len=4"`
}

// PartnerVerifyOtp completes the handoff when the customer's code matches.
func PartnerVerifyOtp(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryID, err := parseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyOtpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.VerifyOtpAndComplete(r.Context(), deliveryID, payload.Otp, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type assignRequest struct {
	PartnerID string `json:"partner_id" validate:"required,uuid4"`
}

// AdminAssign binds an available partner to a pending delivery.
func AdminAssign(svc internaldeliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryID, err := parseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partnerID, err := uuid.Parse(strings.TrimSpace(payload.PartnerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid partner id"))
			return
		}

		if err := svc.AssignPartner(r.Context(), deliveryID, partnerID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}

	actor := internalorders.Actor{UserID: userID, Role: role}
	if raw := middleware.VendorIDFromContext(r.Context()); raw != "" {
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
		}
		actor.VendorID = &vendorID
	}
	if raw := middleware.PartnerIDFromContext(r.Context()); raw != "" {
		partnerID, err := uuid.Parse(raw)
		if err != nil {
			return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid partner id")
		}
		actor.PartnerID = &partnerID
	}
	return actor, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return parsed, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
