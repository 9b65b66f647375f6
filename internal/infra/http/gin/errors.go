package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/handlers/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	domaincalendar "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/validation"
)

var errBusUnavailable = errors.New("http: bus unavailable")

type errorRule struct {
	target error
	status int
	code   string
}

// Rules are checked in order; typed errors unwrap to the sentinels listed here.
var errorRules = []errorRule{
	{middleware.ErrTenantMismatch, http.StatusForbidden, "tenant_mismatch"},
	{tenant.ErrTenantRequired, http.StatusUnauthorized, "tenant_required"},

	{calendarsync.ErrFeedTokenInvalid, http.StatusNotFound, "feed_not_found"},
	{property.ErrPropertyNotFound, http.StatusNotFound, "property_not_found"},
	{quote.ErrPropertyNotFound, http.StatusNotFound, "property_not_found"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{availability.ErrBlockNotFound, http.StatusNotFound, "block_not_found"},
	{domaincalendar.ErrSubscriptionNotFound, http.StatusNotFound, "subscription_not_found"},
	{options.ErrOptionNotFound, http.StatusNotFound, "option_not_found"},
	{promo.ErrPromoNotFound, http.StatusNotFound, "promo_not_found"},

	{availability.ErrAvailabilityConflict, http.StatusConflict, "availability_conflict"},
	{domainbooking.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{promo.ErrRedemptionRaceLost, http.StatusConflict, "redemption_race_lost"},
	{promo.ErrPerUserLimit, http.StatusConflict, "per_user_limit_reached"},
	{domainbooking.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domainbooking.ErrCompletedImmutable, http.StatusConflict, "completed_immutable"},
	{availability.ErrImportedBlock, http.StatusConflict, "imported_block"},
	{availability.ErrBlockNotConvertible, http.StatusConflict, "block_not_convertible"},
	{policies.ErrLockTimeout, http.StatusConflict, "property_busy"},
	{pricing.ErrPeriodMisconfigured, http.StatusConflict, "period_misconfigured"},

	{validation.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{daterange.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{domaincalendar.ErrInvalidFeedURL, http.StatusBadRequest, "invalid_feed_url"},
	{money.ErrCurrencyMismatch, http.StatusBadRequest, "currency_mismatch"},
	{money.ErrInvalidCurrency, http.StatusBadRequest, "invalid_currency"},

	{availability.ErrPastDateRequested, http.StatusUnprocessableEntity, "past_date"},
	{pricing.ErrStayTooShort, http.StatusUnprocessableEntity, "stay_too_short"},
	{options.ErrOptionConstraintViolated, http.StatusUnprocessableEntity, "option_constraint"},
	{quote.ErrTooManyGuests, http.StatusUnprocessableEntity, "too_many_guests"},
	{quote.ErrInvalidParty, http.StatusUnprocessableEntity, "invalid_party"},
	{domainbooking.ErrInvalidGuests, http.StatusUnprocessableEntity, "invalid_party"},
	{domainbooking.ErrPaymentRefRequired, http.StatusUnprocessableEntity, "payment_ref_required"},
	{domainbooking.ErrCheckOutNotReached, http.StatusUnprocessableEntity, "checkout_not_reached"},
	{domainbooking.ErrCheckInNotReached, http.StatusUnprocessableEntity, "checkin_not_reached"},

	{domaincalendar.ErrCalendarFetchFailed, http.StatusBadGateway, "calendar_fetch_failed"},
	{domaincalendar.ErrCalendarParseFailed, http.StatusBadGateway, "calendar_parse_failed"},
	{calendarsync.ErrPublishingDisabled, http.StatusServiceUnavailable, "publishing_disabled"},
	{errBusUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

func classify(err error) (int, string) {
	for _, rule := range errorRules {
		if errors.Is(err, rule.target) {
			return rule.status, rule.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// errorBody adds the details typed errors carry.
func errorBody(err error, code string, status int) gin.H {
	body := gin.H{"error": err.Error(), "code": code}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	var conflict *availability.ConflictError
	if errors.As(err, &conflict) {
		conflicts := make([]dto.ConflictDTO, 0, len(conflict.Conflicts))
		for _, c := range conflict.Conflicts {
			conflicts = append(conflicts, dto.MapOccupancy(c))
		}
		body["conflicts"] = conflicts
	}
	var short *pricing.StayTooShortError
	if errors.As(err, &short) {
		body["required_nights"] = short.Required
		body["nights"] = short.Actual
	}
	var constraint *options.ConstraintError
	if errors.As(err, &constraint) {
		body["option_id"] = string(constraint.OptionID)
		body["constraint"] = constraint.Constraint
		body["limit"] = constraint.Limit
	}
	return body
}

type responder struct {
	Logger *slog.Logger
	Scope  string
}

func (r responder) handleError(c *gin.Context, err error) {
	status, code := classify(err)
	r.respondWithError(c, status, code, err)
}

func (r responder) respondWithError(c *gin.Context, status int, code string, err error) {
	if r.Logger != nil {
		fields := []any{"status", status, "code", code, "error", err, "path", c.FullPath()}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "tenant_id", string(p.TenantID))
		}
		if status >= http.StatusInternalServerError {
			r.Logger.Error(r.Scope+" request failed", fields...)
		} else {
			r.Logger.Warn(r.Scope+" request rejected", fields...)
		}
	}
	c.AbortWithStatusJSON(status, errorBody(err, code, status))
}

func (r responder) badRequest(c *gin.Context, err error) {
	r.respondWithError(c, http.StatusBadRequest, "invalid_input", err)
}
