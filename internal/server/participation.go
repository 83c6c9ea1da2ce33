package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	participationdomain "github.com/gatherly/gatherly/internal/participation/domain"
)

const (
	joinRatePerSecond = 0.5
	joinBurst         = 5
)

func (s *Server) handleJoinEvent(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if s.joinLimiter != nil {
		result, err := s.joinLimiter.Allow(c.Request.Context(),
			"join:"+identity.UserID.String(), joinRatePerSecond, joinBurst)
		if err != nil {
			// Redis being down never blocks joins.
			s.log.Warn("join rate limit check failed", zap.Error(err))
		} else if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": gin.H{
				"type":    "rate_limited",
				"message": "too many join attempts",
			}})
			return
		}
	}

	resp, err := s.participationSvc.Join(c.Request.Context(), participationdomain.JoinRequest{
		EventID: strings.TrimSpace(c.Param("id")),
		UserID:  identity.UserID.String(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
