package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rebelodds/internal/auth"
	"rebelodds/internal/engine"
	"rebelodds/internal/repository"
	"rebelodds/internal/service"
)

type ContractHandler struct {
	Contracts *service.ContractService
	Resolver  *engine.ResolutionEngine
	Logger    *zap.Logger
}

func (h *ContractHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/contracts")
	group.GET("", h.listContracts)
	group.POST("", h.createContract)
	group.GET("/:id", h.getContract)
	group.POST("/:id/resolve", h.resolveContract)
}

// @Summary List contracts
// @Tags contracts
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param status query string false "active|resolving|resolved"
// @Param entity_id query string false "entity id"
// @Param order_by query string false "order by field"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/contracts [get]
func (h *ContractHandler) listContracts(c *gin.Context) {
	if h.Contracts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	status := strQueryPtr(c, "status")
	entityID := strQueryPtr(c, "entity_id")
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"created_at": "created_at",
		"end_date":   "end_date",
		"title":      "title",
		"yes_pool":   "yes_pool",
	})
	asc := boolQueryPtr(c, "ascending")

	result, err := h.Contracts.List(c.Request.Context(), repository.ListContractsParams{
		Limit:    limit,
		Offset:   offset,
		Status:   status,
		EntityID: entityID,
		OrderBy:  orderBy,
		Asc:      asc,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list contracts failed", zap.Error(err))
		}
		mapEngineError(c, err)
		return
	}
	Ok(c, result.Items, paginationMeta(limit, offset, result.Total))
}

type createContractRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	EntityID    string         `json:"entity_id"`
	FeeBps      *int           `json:"fee_bps"`
	SeedTokens  *int64         `json:"seed_tokens"`
	EndDate     *time.Time     `json:"end_date"`
	Metadata    map[string]any `json:"metadata"`
}

// @Summary Create a contract
// @Tags contracts
// @Accept json
// @Param request body createContractRequest true "contract"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /api/v1/contracts [post]
func (h *ContractHandler) createContract(c *gin.Context) {
	if h.Contracts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	actor, ok := auth.ActorFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing session", nil)
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	metadata, err := metadataJSON(req.Metadata)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	view, err := h.Contracts.Create(c.Request.Context(), service.CreateContractInput{
		Title:       req.Title,
		Description: req.Description,
		EntityID:    req.EntityID,
		FeeBps:      req.FeeBps,
		SeedTokens:  req.SeedTokens,
		EndDate:     req.EndDate,
		Metadata:    metadata,
	}, actor)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("create contract failed", zap.Error(err))
		}
		mapEngineError(c, err)
		return
	}
	Ok(c, view, nil)
}

// @Summary Get a contract with prices and recent trades
// @Tags contracts
// @Param id path string true "contract id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/contracts/{id} [get]
func (h *ContractHandler) getContract(c *gin.Context) {
	if h.Contracts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	snapshot, err := h.Contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapEngineError(c, err)
		return
	}
	Ok(c, snapshot, nil)
}

type resolveContractRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// @Summary Resolve a contract and pay out winners
// @Tags contracts
// @Accept json
// @Param id path string true "contract id"
// @Param request body resolveContractRequest true "outcome"
// @Success 200 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/contracts/{id}/resolve [post]
func (h *ContractHandler) resolveContract(c *gin.Context) {
	if h.Resolver == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	actor, ok := auth.ActorFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing session", nil)
		return
	}

	var req resolveContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	contract, err := h.Resolver.Resolve(
		c.Request.Context(),
		c.Param("id"),
		strings.ToLower(strings.TrimSpace(req.Outcome)),
		actor,
	)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("resolve failed",
				zap.String("contract_id", c.Param("id")),
				zap.Error(err),
			)
		}
		mapEngineError(c, err)
		return
	}
	Ok(c, contract, nil)
}
