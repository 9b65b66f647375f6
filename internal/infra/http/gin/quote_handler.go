package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

type QuoteHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Quote prices a stay without holding anything. GET reads the stay from the
// query string; POST also accepts selected options.
func (h QuoteHandler) Quote(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := responder{Logger: h.Logger, Scope: "quote"}
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req stayRequest
	if err := c.ShouldBind(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		r.badRequest(c, err)
		return
	}
	query := quotehandlers.GetQuoteQuery{
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
		UserID:          p.UserID,
	}
	result, err := queries.Ask[quotehandlers.GetQuoteQuery, *dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ QuoteHTTP = QuoteHandler{}
