package repository

import (
	"context"
	"fmt"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateRepository 聚合表仓储：读县级/全球日表作为输入，写州/全国/国家聚合表
type AggregateRepository interface {
	ListUSCountyDays(ctx context.Context) ([]*model.USCountyDay, error)
	ListGlobalDays(ctx context.Context) ([]*model.GlobalDay, error)
	UpsertUSStateDays(ctx context.Context, rows []*model.USStateDay) error
	UpsertUSNationalDays(ctx context.Context, rows []*model.USNationalDay) error
	UpsertCountryDays(ctx context.Context, rows []*model.CountryDay) error
	// ReplaceStateSummaries 汇总表全量替换：确诊或人口为0的州会被剔除出表，
	// upsert无法删行，小表直接替换
	ReplaceStateSummaries(ctx context.Context, rows []*model.StateSummary) error
}

type aggregateRepository struct {
	db *gorm.DB
}

func NewAggregateRepository(db *gorm.DB) AggregateRepository {
	return &aggregateRepository{db: db}
}

func (r *aggregateRepository) ListUSCountyDays(ctx context.Context) ([]*model.USCountyDay, error) {
	var rows []*model.USCountyDay
	if err := r.db.WithContext(ctx).Order("combined_key ASC, date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *aggregateRepository) ListGlobalDays(ctx context.Context) ([]*model.GlobalDay, error) {
	var rows []*model.GlobalDay
	if err := r.db.WithContext(ctx).Order("country_region ASC, province_state ASC, date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var dayAssignCols = []string{"cases", "deaths", "population", "deaths_per_million", "new_cases", "new_deaths", "updated_at"}

func (r *aggregateRepository) UpsertUSStateDays(ctx context.Context, rows []*model.USStateDay) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "province_state"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(dayAssignCols),
	}).CreateInBatches(rows, insertBatchSize).Error
}

func (r *aggregateRepository) UpsertUSNationalDays(ctx context.Context, rows []*model.USNationalDay) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns(dayAssignCols),
	}).CreateInBatches(rows, insertBatchSize).Error
}

func (r *aggregateRepository) UpsertCountryDays(ctx context.Context, rows []*model.CountryDay) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "country_region"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(dayAssignCols),
	}).CreateInBatches(rows, insertBatchSize).Error
}

func (r *aggregateRepository) ReplaceStateSummaries(ctx context.Context, rows []*model.StateSummary) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("1 = 1").Delete(&model.StateSummary{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("清空state_summaries失败: %w", err)
	}
	if len(rows) > 0 {
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("写入state_summaries失败: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
