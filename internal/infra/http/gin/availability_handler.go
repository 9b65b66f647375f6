package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	availabilityapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBlockRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Reason   string `json:"reason"`
}

func (h AvailabilityHandler) responder() responder {
	return responder{Logger: h.Logger, Scope: "availability"}
}

// Check answers whether a stay is free. Unavailability is a 200 with the
// conflicts listed, not an error.
func (h AvailabilityHandler) Check(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	checkIn, checkOut, err := parseStay(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		r.badRequest(c, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		TenantID:         p.TenantID,
		PropertyID:       property.PropertyID(c.Param("propertyId")),
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		ExcludeBookingID: c.Query("exclude_booking_id"),
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	from, err := parseDay("from", c.Query("from"))
	if err != nil {
		r.badRequest(c, err)
		return
	}
	to, err := parseDay("to", c.Query("to"))
	if err != nil {
		r.badRequest(c, err)
		return
	}
	query := availabilityapp.GetCalendarQuery{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		From:       from,
		To:         to,
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) CreateBlock(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		r.badRequest(c, err)
		return
	}
	cmd := availabilityapp.CreateBlockCommand{
		TenantID:        p.TenantID,
		PropertyID:      property.PropertyID(c.Param("propertyId")),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Reason:          req.Reason,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[availabilityapp.CreateBlockCommand, *dto.BlockedPeriod](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) DeleteBlock(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	cmd := availabilityapp.DeleteBlockCommand{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		BlockID:    availability.BlockID(c.Param("blockId")),
	}
	if _, err := commands.Dispatch[availabilityapp.DeleteBlockCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		r.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
