package handlers

import (
	"net/http"

	"creddit/internal/apperror"
	"creddit/internal/middleware"
	"creddit/internal/services"
	"creddit/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type VoteHandler struct {
	ledger *services.Ledger
	log    *logrus.Logger
}

func NewVoteHandler(ledger *services.Ledger, log *logrus.Logger) *VoteHandler {
	return &VoteHandler{ledger: ledger, log: log}
}

type voteRequest struct {
	Value int `json:"value"`
}

// Vote handles up/down votes; body is {"value": 1} or {"value": -1}.
func (h *VoteHandler) Vote(c *gin.Context) {
	postID, ok := utils.StringToUint(c.Param("id"))
	if !ok {
		writeError(c, h.log, apperror.NotFound("post", c.Param("id")), gin.H{"ok": false})
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	points, err := h.ledger.CastVote(c.Request.Context(), middleware.CurrentUserID(c), postID, req.Value)
	if err != nil {
		writeError(c, h.log, err, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "points": points})
}
