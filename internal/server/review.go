package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	reviewdomain "github.com/gatherly/gatherly/internal/review/domain"
	"github.com/gatherly/gatherly/pkg/db/pagination"
)

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handleCreateReview(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reviewSvc.Create(c.Request.Context(), reviewdomain.CreateReviewRequest{
		EventID: strings.TrimSpace(c.Param("id")),
		UserID:  identity.UserID.String(),
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) handleListReviews(c *gin.Context) {
	var query pagination.Options
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reviewSvc.ListByEvent(c.Request.Context(), reviewdomain.ListReviewRequest{
		EventID: strings.TrimSpace(c.Param("id")),
		Page:    query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
