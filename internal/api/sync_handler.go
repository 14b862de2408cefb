package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SyncHandler struct {
	syncService *service.SyncService
	cache       *cache.Cache
	logger      *logrus.Logger
}

// NewSyncHandler 创建 SyncHandler。cache 与报表侧共用，同步成功后整体失效
func NewSyncHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config, c *cache.Cache) *SyncHandler {
	return &SyncHandler{
		syncService: service.NewSyncService(db, logger, cfg),
		cache:       c,
		logger:      logger,
	}
}

// SyncDatasetHandler 同步指定数据集
// @Summary 同步JHU疫情数据集（拉取CSV→长表→聚合→回归）
// @Param dataset path string true "数据集（global/us）"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync/dataset/{dataset} [post]
func (h *SyncHandler) SyncDatasetHandler(c *gin.Context) {
	dataset := model.Dataset(c.Param("dataset"))
	if !dataset.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("未知数据集: %s（可选 global/us）", dataset),
		})
		return
	}

	if err := h.syncService.SyncDataset(c.Request.Context(), dataset); err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("同步%s失败: %v", dataset, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	// 聚合表已变化，丢弃全部报表缓存
	h.cache.Flush()

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s同步成功", dataset),
	})
}
