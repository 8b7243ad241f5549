package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/avalonfin/taxengine/internal/apperrors"
	portssvc "github.com/avalonfin/taxengine/internal/core/ports/services"
	"github.com/avalonfin/taxengine/internal/dto"
	"github.com/avalonfin/taxengine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// householdHandler handles HTTP requests for staged households and their
// computed liabilities.
type householdHandler struct {
	queryService portssvc.ResultQuerySvc
}

func newHouseholdHandler(qs portssvc.ResultQuerySvc) *householdHandler {
	return &householdHandler{queryService: qs}
}

// registerHouseholdRoutes registers routes related to households.
func registerHouseholdRoutes(rg *gin.RouterGroup, queryService portssvc.ResultQuerySvc) {
	h := newHouseholdHandler(queryService)

	households := rg.Group("/households")
	{
		households.GET("", h.listHouseholds)
		households.GET("/:taxpayerID", h.getHousehold)
		households.GET("/:taxpayerID/computation", h.getComputation)
		households.GET("/:taxpayerID/status", h.getStatus)
	}
}

func (h *householdHandler) listHouseholds(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	households, nextToken, err := h.queryService.ListHouseholds(c.Request.Context(), limit, c.Query("nextToken"))
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid nextToken parameter"})
			return
		}
		logger.Error("Failed to list households", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list households"})
		return
	}

	resp := dto.ListHouseholdsResponse{
		Households: make([]dto.HouseholdResponse, 0, len(households)),
		NextToken:  nextToken,
	}
	for _, household := range households {
		resp.Households = append(resp.Households, dto.ToHouseholdResponse(household))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *householdHandler) getHousehold(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	taxpayerID := c.Param("taxpayerID")

	household, err := h.queryService.GetHousehold(c.Request.Context(), taxpayerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Household not found"})
			return
		}
		logger.Error("Failed to fetch household", slog.String("taxpayer_id", taxpayerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch household"})
		return
	}

	c.JSON(http.StatusOK, dto.ToHouseholdResponse(*household))
}

func (h *householdHandler) getComputation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	taxpayerID := c.Param("taxpayerID")

	computation, err := h.queryService.GetComputation(c.Request.Context(), taxpayerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No computation for household"})
			return
		}
		logger.Error("Failed to fetch computation", slog.String("taxpayer_id", taxpayerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch computation"})
		return
	}

	status, err := h.queryService.GetStatus(c.Request.Context(), taxpayerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.Error("Failed to fetch status", slog.String("taxpayer_id", taxpayerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch computation status"})
		return
	}

	c.JSON(http.StatusOK, dto.ToComputationResponse(*computation, status))
}

func (h *householdHandler) getStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	taxpayerID := c.Param("taxpayerID")

	status, err := h.queryService.GetStatus(c.Request.Context(), taxpayerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No status for household"})
			return
		}
		logger.Error("Failed to fetch status", slog.String("taxpayer_id", taxpayerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"taxpayerID": taxpayerID, "status": status})
}
