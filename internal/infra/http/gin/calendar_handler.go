package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	calendarapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	domaincalendar "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const calendarContentType = "text/calendar; charset=utf-8"

type CalendarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type importCalendarRequest struct {
	URL string `json:"url" binding:"required"`
}

type createSubscriptionRequest struct {
	Name string `json:"name"`
	URL  string `json:"url" binding:"required"`
}

func (h CalendarHandler) responder() responder {
	return responder{Logger: h.Logger, Scope: "calendar"}
}

// Export renders the property's feed for the owner.
func (h CalendarHandler) Export(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	h.export(c, calendarapp.ExportCalendarQuery{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
	})
}

// PublicFeed serves /feeds/:tenantId/:propertyId/:token.ics to channel
// managers. A wrong token is reported as not found.
func (h CalendarHandler) PublicFeed(c *gin.Context) {
	token := c.Param("token")
	if !strings.HasSuffix(token, ".ics") {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "feed not found", "code": "feed_not_found"})
		return
	}
	h.export(c, calendarapp.ExportCalendarQuery{
		TenantID:   tenant.ID(c.Param("tenantId")),
		PropertyID: property.PropertyID(c.Param("propertyId")),
		Token:      strings.TrimSuffix(token, ".ics"),
		Public:     true,
	})
}

func (h CalendarHandler) export(c *gin.Context, query calendarapp.ExportCalendarQuery) {
	r := h.responder()
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	feed, err := queries.Ask[calendarapp.ExportCalendarQuery, *dto.Feed](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	if feed == nil {
		r.handleError(c, calendarapp.ErrFeedTokenInvalid)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, calendarContentType, feed.Body)
}

// Publish uploads the rendered feed to object storage and returns its URL.
func (h CalendarHandler) Publish(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	cmd := calendarapp.PublishFeedCommand{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
	}
	result, err := commands.Dispatch[calendarapp.PublishFeedCommand, *dto.Feed](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Import pulls one external feed now and reconciles its blocks.
func (h CalendarHandler) Import(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req importCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	cmd := calendarapp.ImportCalendarCommand{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		FeedURL:    strings.TrimSpace(req.URL),
	}
	result, err := commands.Dispatch[calendarapp.ImportCalendarCommand, *dto.ImportReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) ListSubscriptions(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	query := calendarapp.ListSubscriptionsQuery{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
	}
	result, err := queries.Ask[calendarapp.ListSubscriptionsQuery, []dto.Subscription](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	if result == nil {
		result = []dto.Subscription{}
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

func (h CalendarHandler) CreateSubscription(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	cmd := calendarapp.CreateSubscriptionCommand{
		TenantID:   p.TenantID,
		PropertyID: property.PropertyID(c.Param("propertyId")),
		Name:       strings.TrimSpace(req.Name),
		URL:        strings.TrimSpace(req.URL),
	}
	result, err := commands.Dispatch[calendarapp.CreateSubscriptionCommand, *dto.Subscription](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h CalendarHandler) DeleteSubscription(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := h.responder()
	if h.Commands == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	cmd := calendarapp.DeleteSubscriptionCommand{
		TenantID:       p.TenantID,
		SubscriptionID: domaincalendar.SubscriptionID(c.Param("subscriptionId")),
	}
	if _, err := commands.Dispatch[calendarapp.DeleteSubscriptionCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		r.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ CalendarHTTP = CalendarHandler{}
