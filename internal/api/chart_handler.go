package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ChartHandler 图表配置与CSV导出接口
type ChartHandler struct {
	chartService  *service.ChartService
	exportService *service.ExportService
	logger        *logrus.Logger
}

// NewChartHandler 创建 ChartHandler。cache 与报表查询共用同一实例
func NewChartHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config, c *cache.Cache) *ChartHandler {
	reportRepo := repository.NewReportRepository(db)
	fitRepo := repository.NewFitRepository(db)
	reportSvc := service.NewReportService(reportRepo, fitRepo, c, logger)
	return &ChartHandler{
		chartService:  service.NewChartService(reportSvc, cfg, logger),
		exportService: service.NewExportService(reportRepo, logger),
		logger:        logger,
	}
}

// GetTimelineChart 时间线折线图配置
// GET /api/charts/timeline?scope=state&name=Washington&measure=new_cases
// scope 可选 state/national/country（默认national），state/country 必须带 name
func (h *ChartHandler) GetTimelineChart(c *gin.Context) {
	scope := c.DefaultQuery("scope", "national")
	name := c.Query("name")
	measure := c.DefaultQuery("measure", "cases")

	if (scope == "state" || scope == "country") && name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	result, err := h.chartService.BuildTimelineChart(c.Request.Context(), scope, name, measure)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetTimelineChart failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTopChart 州级汇总排行柱状图配置
// GET /api/charts/top?measure=deaths_per_thousand&limit=10
func (h *ChartHandler) GetTopChart(c *gin.Context) {
	measure := c.DefaultQuery("measure", "deaths_per_thousand")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	result, err := h.chartService.BuildTopChart(c.Request.Context(), measure, limit)
	if err != nil {
		h.logger.WithError(err).Error("GetTopChart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRegressionChart 回归散点+拟合线图配置
// GET /api/charts/regression
func (h *ChartHandler) GetRegressionChart(c *gin.Context) {
	result, err := h.chartService.BuildRegressionChart(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetRegressionChart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportTable 聚合表CSV全量导出
// GET /api/export/:table（table 形如 us_state_days.csv，.csv后缀可省）
func (h *ChartHandler) ExportTable(c *gin.Context) {
	table := strings.TrimSuffix(c.Param("table"), ".csv")
	if !service.ExportableTables[table] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不支持导出的表: %s", table)})
		return
	}

	// 先落到内存缓冲，避免写到一半才发现错误却已经发出200
	var buf bytes.Buffer
	if err := h.exportService.ExportTable(c.Request.Context(), table, &buf); err != nil {
		h.logger.WithError(err).Error("ExportTable failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, table))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
