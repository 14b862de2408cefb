package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportHandler 提供给前端的聚合查询接口
type ReportHandler struct {
	reportService *service.ReportService
	logger        *logrus.Logger
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(db *gorm.DB, logger *logrus.Logger, c *cache.Cache) *ReportHandler {
	reportRepo := repository.NewReportRepository(db)
	fitRepo := repository.NewFitRepository(db)
	svc := service.NewReportService(reportRepo, fitRepo, c, logger)
	return &ReportHandler{
		reportService: svc,
		logger:        logger,
	}
}

// ListStates 州级汇总列表接口
// GET /api/states?order_by=deaths_per_thousand&limit=10
func (h *ReportHandler) ListStates(c *gin.Context) {
	orderBy := c.DefaultQuery("order_by", "deaths_per_thousand")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	result, err := h.reportService.ListStates(c.Request.Context(), orderBy, limit)
	if err != nil {
		h.logger.WithError(err).Error("ListStates failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStateTimeline 单个州逐日时间线
// GET /api/states/:state/timeline
func (h *ReportHandler) GetStateTimeline(c *gin.Context) {
	state := c.Param("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
		return
	}

	result, err := h.reportService.GetStateTimeline(c.Request.Context(), state)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetStateTimeline failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetNationalTimeline 全国逐日时间线
// GET /api/national/timeline
func (h *ReportHandler) GetNationalTimeline(c *gin.Context) {
	result, err := h.reportService.GetNationalTimeline(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetNationalTimeline failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCountryTimeline 单个国家逐日时间线
// GET /api/countries/:country/timeline
func (h *ReportHandler) GetCountryTimeline(c *gin.Context) {
	country := c.Param("country")
	if country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "country is required"})
		return
	}

	result, err := h.reportService.GetCountryTimeline(c.Request.Context(), country)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetCountryTimeline failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRegression 最新回归拟合详情（系数、标准误、p值、网格预测）
// GET /api/regression
func (h *ReportHandler) GetRegression(c *gin.Context) {
	result, err := h.reportService.GetRegression(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("GetRegression failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "尚未有拟合结果"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListRuns 最近同步运行记录
// GET /api/runs?limit=20
func (h *ReportHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.reportService.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("ListRuns failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(result), "items": result})
}
