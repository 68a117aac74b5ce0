package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/server/validator"
	"github.com/botbridge/routecore/internal/store"
	"github.com/botbridge/routecore/pkg/api"
)

// ConfigHandler exposes CRUD over the routing configuration: capability
// tags, cost strategies and fallback chains.
type ConfigHandler struct {
	repo store.Repository
}

func NewConfigHandler(repo store.Repository) *ConfigHandler {
	return &ConfigHandler{repo: repo}
}

// GET /v1/config/tags
func (h *ConfigHandler) ListTags(c *gin.Context) {
	tags, err := h.repo.Tags().List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// PUT /v1/config/tags/:id
func (h *ConfigHandler) UpsertTag(c *gin.Context) {
	var tag domain.CapabilityTag
	if err := c.ShouldBindJSON(&tag); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}
	tag.ID = c.Param("id")
	if tag.RequiredProtocol != "" && !tag.RequiredProtocol.Valid() {
		_ = c.Error(api.BadRequestError("unknown protocol: " + string(tag.RequiredProtocol)))
		return
	}
	if err := h.repo.Tags().Upsert(c.Request.Context(), &tag); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DELETE /v1/config/tags/:id
func (h *ConfigHandler) DeleteTag(c *gin.Context) {
	if err := h.repo.Tags().Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /v1/config/strategies
func (h *ConfigHandler) ListStrategies(c *gin.Context) {
	strategies, err := h.repo.Strategies().List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}

// PUT /v1/config/strategies/:id
func (h *ConfigHandler) UpsertStrategy(c *gin.Context) {
	var strategy domain.CostStrategy
	if err := c.ShouldBindJSON(&strategy); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}
	strategy.ID = c.Param("id")
	if err := h.repo.Strategies().Upsert(c.Request.Context(), &strategy); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, strategy)
}

// DELETE /v1/config/strategies/:id
func (h *ConfigHandler) DeleteStrategy(c *gin.Context) {
	if err := h.repo.Strategies().Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /v1/config/chains
func (h *ConfigHandler) ListChains(c *gin.Context) {
	chains, err := h.repo.Chains().List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// PUT /v1/config/chains/:id
func (h *ConfigHandler) UpsertChain(c *gin.Context) {
	var chain domain.FallbackChain
	if err := c.ShouldBindJSON(&chain); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}
	chain.ID = c.Param("id")
	if len(chain.Steps) == 0 {
		_ = c.Error(api.BadRequestError("chain must declare at least one step"))
		return
	}
	for _, s := range chain.Steps {
		if !s.Protocol.Valid() {
			_ = c.Error(api.BadRequestError("unknown protocol: " + string(s.Protocol)))
			return
		}
	}
	if err := h.repo.Chains().Upsert(c.Request.Context(), &chain); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, chain)
}

// DELETE /v1/config/chains/:id
func (h *ConfigHandler) DeleteChain(c *gin.Context) {
	if err := h.repo.Chains().Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /v1/config/models
func (h *ConfigHandler) ListModels(c *gin.Context) {
	catalog, err := h.repo.Models().ListEnabled(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": catalog})
}

// PUT /v1/config/models/:vendor/:model
func (h *ConfigHandler) UpsertModel(c *gin.Context) {
	var candidate domain.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}
	candidate.Vendor = c.Param("vendor")
	candidate.Model = c.Param("model")
	if !candidate.Protocol.Valid() {
		_ = c.Error(api.BadRequestError("unknown protocol: " + string(candidate.Protocol)))
		return
	}
	if err := h.repo.Models().Upsert(c.Request.Context(), &candidate); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// DELETE /v1/config/models/:vendor/:model
func (h *ConfigHandler) DeleteModel(c *gin.Context) {
	if err := h.repo.Models().Delete(c.Request.Context(), c.Param("vendor"), c.Param("model")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
