package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	eventdomain "github.com/gatherly/gatherly/internal/event/domain"
	"github.com/gatherly/gatherly/pkg/db/pagination"
)

type createEventRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	Date            string `json:"date"`
	MinParticipants int    `json:"minParticipants"`
	MaxParticipants int    `json:"maxParticipants"`
	CategoryID      string `json:"categoryId"`
	Fee             string `json:"fee"`
	Currency        string `json:"currency"`
	Image           string `json:"image"`
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.Create(c.Request.Context(), identity.UserID.String(), eventdomain.CreateEventRequest{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		Date:            req.Date,
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
		CategoryID:      req.CategoryID,
		Fee:             req.Fee,
		Currency:        req.Currency,
		Image:           req.Image,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) handleGetEvent(c *gin.Context) {
	resp, err := s.eventSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) handleListEvents(c *gin.Context) {
	var query struct {
		pagination.Options
		Search     string `form:"search"`
		CategoryID string `form:"categoryId"`
		Location   string `form:"location"`
		Status     string `form:"status"`
		DateFrom   string `form:"dateFrom"`
		DateTo     string `form:"dateTo"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, err := parseOptionalTime(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("dateFrom", "invalid_date_from", "invalid dateFrom"))
		return
	}
	dateTo, err := parseOptionalTime(query.DateTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("dateTo", "invalid_date_to", "invalid dateTo"))
		return
	}

	resp, err := s.eventSvc.List(c.Request.Context(), eventdomain.ListEventRequest{
		SearchTerm: strings.TrimSpace(query.Search),
		CategoryID: strings.TrimSpace(query.CategoryID),
		Location:   strings.TrimSpace(query.Location),
		Status:     strings.TrimSpace(query.Status),
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		Page:       query.Options,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.CreateCategory(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) handleListCategories(c *gin.Context) {
	resp, err := s.eventSvc.ListCategories(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// parseOptionalTime accepts RFC3339 or a bare date. endOfDay pushes a bare
// date to 23:59:59 so a dateTo filter includes the whole day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	if endOfDay {
		utc = utc.Add(24*time.Hour - time.Second)
	}
	return &utc, nil
}
