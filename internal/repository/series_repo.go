package repository

import (
	"context"
	"fmt"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/interfaces"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"gorm.io/gorm"
)

// 批量插入条数（县级日表单次同步可达数百万行，逐条插入不可行）
const insertBatchSize = 500

type SeriesRepository struct {
	db *gorm.DB
}

func NewSeriesRepository(db *gorm.DB) interfaces.SeriesRepository {
	return &SeriesRepository{db: db}
}

// SaveGlobalDays 全球日表入库：上游宽表每次都是全量快照，直接整表替换
// 保证重复同步幂等，也能吃掉上游对历史数据的订正
func (r *SeriesRepository) SaveGlobalDays(ctx context.Context, rows []*model.GlobalDay) error {
	return r.replaceAll(ctx, &model.GlobalDay{}, rows, "global_days")
}

// SaveUSCountyDays 美国县级日表入库：同样整表替换
func (r *SeriesRepository) SaveUSCountyDays(ctx context.Context, rows []*model.USCountyDay) error {
	return r.replaceAll(ctx, &model.USCountyDay{}, rows, "us_county_days")
}

// replaceAll 事务内清空旧快照并批量写入新快照
func (r *SeriesRepository) replaceAll(ctx context.Context, emptyModel interface{}, rows interface{}, table string) error {
	// 开启事务
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
		}
	}()

	// 1. 清空旧快照
	if err := tx.Where("1 = 1").Delete(emptyModel).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("清空%s失败: %w", table, err)
	}

	// 2. 批量写入新快照
	if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("写入%s失败: %w", table, err)
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
