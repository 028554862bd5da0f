package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	creditdomain "github.com/sokobiz/sokobiz/internal/credit/domain"
	"github.com/sokobiz/sokobiz/pkg/db/pagination"
)

type consumeRequest struct {
	OrderID string `json:"order_id"`
	Source  string `json:"source"`
}

type reverseRequest struct {
	OrderID string `json:"order_id"`
}

type ledgerResponse struct {
	Entries  []*creditdomain.LedgerEntry `json:"entries"`
	PageInfo *pagination.PageInfo        `json:"page_info"`
}

func (s *Server) GetBalance(c *gin.Context) {
	businessID, ok := s.businessIDParam(c)
	if !ok {
		return
	}

	balance, err := s.creditSvc.GetBalance(c.Request.Context(), businessID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (s *Server) ListLedger(c *gin.Context) {
	businessID, ok := s.businessIDParam(c)
	if !ok {
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entries, info, err := s.creditSvc.ListLedger(c.Request.Context(), businessID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if entries == nil {
		entries = []*creditdomain.LedgerEntry{}
	}

	c.JSON(http.StatusOK, ledgerResponse{Entries: entries, PageInfo: info})
}

func (s *Server) ConsumeCredit(c *gin.Context) {
	businessID, ok := s.businessIDParam(c)
	if !ok {
		return
	}

	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	source, ok := resolveSource(req.Source)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entry, err := s.creditSvc.ConsumeOneForOrder(c.Request.Context(), businessID, req.OrderID, source)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (s *Server) ReverseConsume(c *gin.Context) {
	businessID, ok := s.businessIDParam(c)
	if !ok {
		return
	}

	var req reverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entry, err := s.creditSvc.ReverseConsume(c.Request.Context(), businessID, req.OrderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (s *Server) businessIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("business_id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}

func resolveSource(raw string) (creditdomain.Source, bool) {
	switch creditdomain.Source(strings.TrimSpace(raw)) {
	case "":
		return creditdomain.SourceWeb, true
	case creditdomain.SourceWeb:
		return creditdomain.SourceWeb, true
	case creditdomain.SourceWhatsapp:
		return creditdomain.SourceWhatsapp, true
	case creditdomain.SourceMobileMoney:
		return creditdomain.SourceMobileMoney, true
	case creditdomain.SourceAdmin:
		return creditdomain.SourceAdmin, true
	case creditdomain.SourceSystem:
		return creditdomain.SourceSystem, true
	default:
		return "", false
	}
}
