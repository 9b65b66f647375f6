package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	bookingapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// Cancellation terms come from the listing, never from the guest.
type requestBookingRequest struct {
	stayRequest
	FromBlockID string `json:"from_block_id"`
}

type confirmBookingRequest struct {
	PaymentRef string `json:"payment_ref"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) responder() responder {
	return responder{Logger: h.Logger, Scope: "booking"}
}

// Request holds the nights with a PENDING booking priced from a fresh quote.
func (h BookingHandler) Request(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req requestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		r.badRequest(c, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		TenantID:        p.TenantID,
		PropertyID:      property.PropertyID(c.Param("propertyId")),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          req.Adults,
		Children:        req.Children,
		Infants:         req.Infants,
		Pets:            req.Pets,
		SelectedOptions: req.Options,
		PromoCode:       req.PromoCode,
		GuestID:         p.UserID,
		FromBlockID:     availability.BlockID(strings.TrimSpace(req.FromBlockID)),
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	query := bookingapp.GetBookingQuery{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		BookingID:  domainbooking.BookingID(c.Param("id")),
	}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req confirmBookingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		r.badRequest(c, err)
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{
		TenantID:        p.TenantID,
		PropertyID:      property.PropertyID(c.Param("propertyId")),
		BookingID:       domainbooking.BookingID(c.Param("id")),
		PaymentRef:      req.PaymentRef,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req cancelBookingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		r.badRequest(c, err)
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		TenantID:        p.TenantID,
		PropertyID:      property.PropertyID(c.Param("propertyId")),
		BookingID:       domainbooking.BookingID(c.Param("id")),
		Reason:          req.Reason,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancellationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Complete(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	cmd := bookingapp.CompleteBookingCommand{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		BookingID:  domainbooking.BookingID(c.Param("id")),
	}
	result, err := commands.Dispatch[bookingapp.CompleteBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) NoShow(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	cmd := bookingapp.MarkNoShowCommand{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		BookingID:  domainbooking.BookingID(c.Param("id")),
	}
	result, err := commands.Dispatch[bookingapp.MarkNoShowCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindOptionalJSON binds a body when one was sent; lifecycle actions accept
// an empty POST.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}

var _ BookingHTTP = BookingHandler{}
