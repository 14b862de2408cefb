package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/adapter"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/adapter/jhu"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/interfaces"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSyncInProgress 已有同步在跑时直接拒绝，避免两次整表替换交叠
var ErrSyncInProgress = fmt.Errorf("同步任务进行中，请稍后重试")

type SyncService struct {
	db         *gorm.DB
	logger     *logrus.Logger
	seriesRepo interfaces.SeriesRepository
	cfg        *config.Config
	aggSvc     *AggregationService
	regSvc     *RegressionService

	// 同一时刻只允许一个同步任务（快照整表替换不可交叠）
	mu sync.Mutex
}

func NewSyncService(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *SyncService {
	return &SyncService{
		db:         db,
		logger:     logger,
		seriesRepo: repository.NewSeriesRepository(db),
		cfg:        cfg,
		aggSvc:     NewAggregationService(repository.NewAggregateRepository(db), logger),
		regSvc:     NewRegressionService(repository.NewReportRepository(db), repository.NewFitRepository(db), cfg, logger),
	}
}

// SyncDataset 通用同步方法：下载→融化→连接→落库→聚合，us数据集随后重拟合回归
func (s *SyncService) SyncDataset(ctx context.Context, dataset model.Dataset) error {
	if !dataset.Valid() {
		return fmt.Errorf("不支持的数据集: %s", dataset)
	}
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()

	// 1. 查询数据源配置
	var source model.Source
	if err := s.db.WithContext(ctx).Where("name = ?", jhu.SourceName).First(&source).Error; err != nil {
		return fmt.Errorf("查询%s数据源失败: %w", jhu.SourceName, err)
	}
	if !source.IsEnabled {
		return fmt.Errorf("%s数据源已禁用", jhu.SourceName)
	}

	// 2. 记录本次运行
	run := &model.SyncRun{
		RunUUID:   uuid.NewString(),
		SourceID:  source.ID,
		Dataset:   string(dataset),
		Status:    "running",
		StartedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("创建同步运行记录失败: %w", err)
	}
	counts := make(map[string]int)
	var runErr error
	defer func() { s.finishRun(run, counts, runErr) }()

	// 3. 创建适配器
	factory, ok := adapter.GetFactory(jhu.SourceName)
	if !ok {
		runErr = fmt.Errorf("未注册的数据源: %s", jhu.SourceName)
		return runErr
	}
	sourceCfg, ok := s.cfg.Sources[jhu.SourceName]
	if !ok {
		runErr = fmt.Errorf("未获取到数据源配置: %s", jhu.SourceName)
		return runErr
	}
	ad := factory(&sourceCfg, s.logger)

	// 4. 下载原始宽表
	tables, err := ad.FetchTables(ctx, dataset)
	if err != nil {
		runErr = fmt.Errorf("%s下载数据失败: %w", jhu.SourceName, err)
		return runErr
	}

	// 5. 融化+连接，转换为数据库模型
	globalRows, usRows, err := ad.ConvertToDBModel(tables, dataset)
	if err != nil {
		runErr = fmt.Errorf("%s转换数据失败: %w", jhu.SourceName, err)
		return runErr
	}

	// 6. 落库（整表快照替换）
	switch dataset {
	case model.DatasetGlobal:
		if err := s.seriesRepo.SaveGlobalDays(ctx, globalRows); err != nil {
			runErr = fmt.Errorf("%s入库失败: %w", jhu.SourceName, err)
			return runErr
		}
		counts["global_days"] = len(globalRows)
	case model.DatasetUS:
		if err := s.seriesRepo.SaveUSCountyDays(ctx, usRows); err != nil {
			runErr = fmt.Errorf("%s入库失败: %w", jhu.SourceName, err)
			return runErr
		}
		counts["us_county_days"] = len(usRows)
	}

	// 7. 更新数据源同步时间
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&source).Updates(map[string]interface{}{
		"last_synced_at": now,
		"updated_at":     now,
	}).Error; err != nil {
		s.logger.WithError(err).Warn("更新数据源同步时间失败")
	}

	// 8. 聚合派生表
	aggCounts, err := s.aggSvc.Run(ctx, dataset)
	if err != nil {
		runErr = fmt.Errorf("聚合失败: %w", err)
		return runErr
	}
	for k, v := range aggCounts {
		counts[k] = v
	}

	// 9. us数据集变更会改变州级汇总，重拟合回归
	if dataset == model.DatasetUS {
		if err := s.regSvc.Refit(ctx); err != nil {
			runErr = fmt.Errorf("回归重拟合失败: %w", err)
			return runErr
		}
		counts["regression_fits"] = 1
	}

	s.logger.Infof("%s数据集同步完成，原始行数%d", dataset, counts["global_days"]+counts["us_county_days"])
	return nil
}

// finishRun 落盘运行状态（ctx可能已取消，这里不带ctx）
func (s *SyncService) finishRun(run *model.SyncRun, counts map[string]int, runErr error) {
	now := time.Now()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = "failed"
		msg := runErr.Error()
		run.ErrMessage = &msg
	} else {
		run.Status = "completed"
	}
	if b, err := json.Marshal(counts); err == nil {
		run.RowCounts = b
	}
	if err := s.db.Save(run).Error; err != nil {
		s.logger.WithError(err).Error("更新同步运行记录失败")
	}
}
