package server

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avgwguard/internal/admission"
	"github.com/vyrodovalexey/avgwguard/internal/auth/ethsig"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
	"github.com/vyrodovalexey/avgwguard/internal/server/middleware"
)

// handleUpsertStatuses stores a batch of IP status records in one
// round trip. Duplicate IPs within the batch resolve last-wins.
func (s *Server) handleUpsertStatuses(c *gin.Context) {
	var records []admission.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad request",
			"message": "body must be a JSON array of ip status records",
		})
		return
	}

	if err := s.store.BulkInsert(c.Request.Context(), records); err != nil {
		s.logger.Error("admission bulk insert failed",
			observability.Error(err),
			observability.Int("records", len(records)),
			observability.String("requestID", middleware.GetRequestID(c)),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "bad gateway",
			"message": "admission store unavailable",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// handleListStatuses returns every stored mapping. Codes are returned
// exactly as stored, without normalization, so operators see what the
// table really holds.
func (s *Server) handleListStatuses(c *gin.Context) {
	statuses := s.store.ReadAll(c.Request.Context())

	records := make([]admission.Record, 0, len(statuses))
	for ip, code := range statuses {
		records = append(records, admission.Record{IP: ip, Status: code})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].IP < records[j].IP
	})

	c.JSON(http.StatusOK, records)
}

// handleVerify checks a signed message claim. Expired claims and
// signer mismatches are clean rejections; malformed claims report the
// failure kind.
func (s *Server) handleVerify(c *gin.Context) {
	var msg ethsig.SignedMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad request",
			"message": "invalid request body",
		})
		return
	}

	authenticated, err := s.verifier.Verify(c.Request.Context(), &msg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad request",
			"message": ethsig.FailureReason(err),
		})
		return
	}
	if !authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"address": msg.Address,
	})
}

// handleLive is a minimal liveness endpoint for load balancers. Full
// health checks live on the metrics listener.
func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
