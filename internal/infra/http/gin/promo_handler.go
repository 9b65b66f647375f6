package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	promoapp "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

type PromoHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

type validatePromoRequest struct {
	Code       string `json:"code" binding:"required"`
	PropertyID string `json:"property_id"`
	Total      string `json:"total" binding:"required"`
	Currency   string `json:"currency" binding:"required"`
	Nights     int    `json:"nights" binding:"min=0"`
}

// Validate previews a code against an amount. A refused code is a 200 with
// valid=false and the reason.
func (h PromoHandler) Validate(c *gin.Context) {
	p, ok := requireTenant(c)
	if !ok {
		return
	}
	r := responder{Logger: h.Logger, Scope: "promo"}
	if h.Queries == nil {
		r.handleError(c, errBusUnavailable)
		return
	}
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.badRequest(c, err)
		return
	}
	total, err := money.FromString(req.Total, req.Currency)
	if err != nil {
		r.badRequest(c, err)
		return
	}
	query := promoapp.ValidatePromoQuery{
		TenantID:   p.TenantID,
		Code:       req.Code,
		PropertyID: property.PropertyID(req.PropertyID),
		Total:      total,
		Nights:     req.Nights,
		UserID:     p.UserID,
	}
	result, err := queries.Ask[promoapp.ValidatePromoQuery, dto.PromoDTO](c.Request.Context(), h.Queries, query)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PromoHTTP = PromoHandler{}
