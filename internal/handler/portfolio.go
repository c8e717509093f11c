package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rebelodds/internal/auth"
	"rebelodds/internal/service"
)

type PortfolioHandler struct {
	Portfolios *service.PortfolioService
	Logger     *zap.Logger
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/portfolio", h.getPortfolio)
	group.GET("/portfolio/history", h.getHistory)
	group.GET("/leaderboard", h.getLeaderboard)
}

// @Summary Get the caller's wallet and open positions marked to market
// @Tags portfolio
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio [get]
func (h *PortfolioHandler) getPortfolio(c *gin.Context) {
	if h.Portfolios == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	actor, ok := auth.ActorFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing session", nil)
		return
	}
	pf, err := h.Portfolios.Portfolio(c.Request.Context(), actor.ID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("portfolio failed", zap.String("owner_id", actor.ID), zap.Error(err))
		}
		mapEngineError(c, err)
		return
	}
	Ok(c, pf, nil)
}

// @Summary Get the caller's hourly net-worth history
// @Tags portfolio
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio/history [get]
func (h *PortfolioHandler) getHistory(c *gin.Context) {
	if h.Portfolios == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	actor, ok := auth.ActorFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing session", nil)
		return
	}
	limit := intQuery(c, "limit", 168)
	offset := intQuery(c, "offset", 0)
	since := timeQueryPtr(c, "since")
	until := timeQueryPtr(c, "until")

	items, err := h.Portfolios.History(c.Request.Context(), actor.ID, since, until, limit, offset)
	if err != nil {
		mapEngineError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Rank wallets by net worth
// @Tags portfolio
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/v1/leaderboard [get]
func (h *PortfolioHandler) getLeaderboard(c *gin.Context) {
	if h.Portfolios == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	board, err := h.Portfolios.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("leaderboard failed", zap.Error(err))
		}
		mapEngineError(c, err)
		return
	}
	Ok(c, board, nil)
}
