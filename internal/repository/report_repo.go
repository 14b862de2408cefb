package repository

import (
	"context"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"gorm.io/gorm"
)

// summaryOrderCols 州级汇总排序白名单（外部传入的orderBy只认这些列）
var summaryOrderCols = map[string]bool{
	"cases":               true,
	"deaths":              true,
	"population":          true,
	"cases_per_thousand":  true,
	"deaths_per_thousand": true,
}

// ReportRepository 面向前端聚合查询的仓储接口
type ReportRepository interface {
	// ListStateSummaries 州级汇总列表（orderBy仅接受白名单列，降序；limit<=0表示全量）
	ListStateSummaries(ctx context.Context, orderBy string, limit int) ([]*model.StateSummary, error)
	// ListStateDays 州级时间序列（state为空时返回全部州，供导出）
	ListStateDays(ctx context.Context, state string) ([]*model.USStateDay, error)
	// ListNationalDays 全国时间序列
	ListNationalDays(ctx context.Context) ([]*model.USNationalDay, error)
	// ListCountryDays 国家级时间序列（country为空时返回全部，供导出）
	ListCountryDays(ctx context.Context, country string) ([]*model.CountryDay, error)
	// ListSyncRuns 最近的同步运行记录
	ListSyncRuns(ctx context.Context, limit int) ([]*model.SyncRun, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建 ReportRepository 实例
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) ListStateSummaries(ctx context.Context, orderBy string, limit int) ([]*model.StateSummary, error) {
	if !summaryOrderCols[orderBy] {
		orderBy = "deaths_per_thousand"
	}

	db := r.db.WithContext(ctx).Model(&model.StateSummary{}).Order(orderBy + " DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []*model.StateSummary
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) ListStateDays(ctx context.Context, state string) ([]*model.USStateDay, error) {
	db := r.db.WithContext(ctx).Model(&model.USStateDay{})
	if state != "" {
		db = db.Where("province_state = ?", state)
	}

	var rows []*model.USStateDay
	if err := db.Order("province_state ASC, date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) ListNationalDays(ctx context.Context) ([]*model.USNationalDay, error) {
	var rows []*model.USNationalDay
	if err := r.db.WithContext(ctx).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) ListCountryDays(ctx context.Context, country string) ([]*model.CountryDay, error) {
	db := r.db.WithContext(ctx).Model(&model.CountryDay{})
	if country != "" {
		db = db.Where("country_region = ?", country)
	}

	var rows []*model.CountryDay
	if err := db.Order("country_region ASC, date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepository) ListSyncRuns(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []*model.SyncRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
