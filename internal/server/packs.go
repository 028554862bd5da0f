package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
)

type packResponse struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Credits          int64  `json:"credits"`
	BonusPercent     int64  `json:"bonus_percent"`
	EffectiveCredits int64  `json:"effective_credits"`
	PriceCurrency    string `json:"price_currency"`
	PriceValue       string `json:"price_value"`
	Region           string `json:"region,omitempty"`
}

func (s *Server) ListPacks(c *gin.Context) {
	packs, err := s.packSvc.ListPacks(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]packResponse, 0, len(packs))
	for _, p := range packs {
		out = append(out, toPackResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{"packs": out})
}

func toPackResponse(p *packdomain.CreditPack) packResponse {
	return packResponse{
		Code:             p.Code,
		Name:             p.Name,
		Credits:          p.Credits,
		BonusPercent:     p.BonusPercent,
		EffectiveCredits: p.EffectiveCredits(),
		PriceCurrency:    p.PriceCurrency,
		PriceValue:       p.PriceValue.String(),
		Region:           p.Region,
	}
}
