package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rebelodds/internal/auth"
	"rebelodds/internal/engine"
)

type TradeHandler struct {
	Executor *engine.TradeExecutor
	Logger   *zap.Logger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/trades", h.submitTrade)
}

type submitTradeRequest struct {
	ContractID   string `json:"contract_id" binding:"required"`
	Side         string `json:"side" binding:"required"`
	Action       string `json:"action" binding:"required"`
	AmountTokens int64  `json:"amount_tokens" binding:"required"`
}

// @Summary Submit a buy or sell order
// @Tags trades
// @Accept json
// @Param request body submitTradeRequest true "trade"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/v1/trades [post]
func (h *TradeHandler) submitTrade(c *gin.Context) {
	if h.Executor == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	actor, ok := auth.ActorFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing session", nil)
		return
	}

	var req submitTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.Executor.SubmitTrade(c.Request.Context(), engine.TradeRequest{
		OwnerID:      actor.ID,
		ContractID:   strings.TrimSpace(req.ContractID),
		Side:         strings.ToLower(strings.TrimSpace(req.Side)),
		Action:       strings.ToLower(strings.TrimSpace(req.Action)),
		AmountTokens: req.AmountTokens,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("trade rejected",
				zap.String("owner_id", actor.ID),
				zap.String("contract_id", req.ContractID),
				zap.Error(err),
			)
		}
		mapEngineError(c, err)
		return
	}
	Ok(c, result, nil)
}
