package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// ErrNoData 查询目标没有任何数据（接口层据此返回404）
var ErrNoData = errors.New("无数据")

// ReportService 面向前端的查询服务（州级汇总、时间线、回归结果）
// 聚合表只在同步时变化，查询结果走TTL缓存，同步成功后整体失效
type ReportService struct {
	reportRepo repository.ReportRepository
	fitRepo    repository.FitRepository
	cache      *cache.Cache
	logger     *logrus.Logger
}

// NewReportService 创建 ReportService（cache由调用方注入，与同步侧共用同一实例）
func NewReportService(reportRepo repository.ReportRepository, fitRepo repository.FitRepository, c *cache.Cache, logger *logrus.Logger) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		fitRepo:    fitRepo,
		cache:      c,
		logger:     logger,
	}
}

// ===== 列表/时间线 DTO =====

// StateSummaryItem 州级汇总单条
type StateSummaryItem struct {
	ProvinceState     string  `json:"province_state"`
	Cases             int64   `json:"cases"`
	Deaths            int64   `json:"deaths"`
	Population        int64   `json:"population"`
	CasesPerThousand  float64 `json:"cases_per_thousand"`
	DeathsPerThousand float64 `json:"deaths_per_thousand"`
}

// StateListResult 州级汇总列表返回
type StateListResult struct {
	OrderBy string             `json:"order_by"`
	Count   int                `json:"count"`
	Items   []StateSummaryItem `json:"items"`
}

// TimelinePoint 单日观测（州/全国/国家三种时间线共用）
type TimelinePoint struct {
	Date             string   `json:"date"` // YYYY-MM-DD
	Cases            int64    `json:"cases"`
	Deaths           int64    `json:"deaths"`
	Population       int64    `json:"population"`
	DeathsPerMillion *float64 `json:"deaths_per_million"`
	NewCases         *int64   `json:"new_cases"`
	NewDeaths        *int64   `json:"new_deaths"`
}

// TimelineResult 时间线返回
type TimelineResult struct {
	Scope  string          `json:"scope"` // state/national/country
	Name   string          `json:"name"`
	Count  int             `json:"count"`
	Points []TimelinePoint `json:"points"`
}

// RegressionResult 最新拟合返回
type RegressionResult struct {
	FitUUID        string                  `json:"fit_uuid"`
	Response       string                  `json:"response"`
	Predictor      string                  `json:"predictor"`
	Intercept      float64                 `json:"intercept"`
	Slope          float64                 `json:"slope"`
	StdErrIntcpt   *float64                `json:"std_err_intercept"`
	StdErrSlope    *float64                `json:"std_err_slope"`
	PValueIntcpt   *float64                `json:"p_value_intercept"`
	PValueSlope    *float64                `json:"p_value_slope"`
	RSquared       float64                 `json:"r_squared"`
	NObs           int                     `json:"n_obs"`
	FittedAt       int64                   `json:"fitted_at"` // 毫秒时间戳
	GridPoints     []model.PredictionPoint `json:"grid_points"`
	ObservedPoints []model.PredictionPoint `json:"observed_points"`
}

// RunItem 同步运行记录单条
type RunItem struct {
	RunUUID    string          `json:"run_uuid"`
	Dataset    string          `json:"dataset"`
	Status     string          `json:"status"`
	RowCounts  json.RawMessage `json:"row_counts,omitempty"`
	ErrMessage *string         `json:"err_message,omitempty"`
	StartedAt  int64           `json:"started_at"`  // 毫秒时间戳
	FinishedAt *int64          `json:"finished_at"` // 毫秒时间戳
}

// ListStates 州级汇总列表（orderBy空值按死亡千人率降序）
func (s *ReportService) ListStates(ctx context.Context, orderBy string, limit int) (*StateListResult, error) {
	key := fmt.Sprintf("states:%s:%d", orderBy, limit)
	if v, ok := s.cache.Get(key); ok {
		if r, ok := v.(*StateListResult); ok {
			return r, nil
		}
	}

	rows, err := s.reportRepo.ListStateSummaries(ctx, orderBy, limit)
	if err != nil {
		return nil, err
	}

	result := &StateListResult{
		OrderBy: orderBy,
		Count:   len(rows),
		Items:   make([]StateSummaryItem, 0, len(rows)),
	}
	for _, r := range rows {
		result.Items = append(result.Items, StateSummaryItem{
			ProvinceState:     r.ProvinceState,
			Cases:             r.Cases,
			Deaths:            r.Deaths,
			Population:        r.Population,
			CasesPerThousand:  r.CasesPerThousand,
			DeathsPerThousand: r.DeathsPerThousand,
		})
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// GetStateTimeline 单个州的时间线
func (s *ReportService) GetStateTimeline(ctx context.Context, state string) (*TimelineResult, error) {
	key := "timeline:state:" + state
	if v, ok := s.cache.Get(key); ok {
		if r, ok := v.(*TimelineResult); ok {
			return r, nil
		}
	}

	rows, err := s.reportRepo.ListStateDays(ctx, state)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("州%s%w", state, ErrNoData)
	}

	result := &TimelineResult{Scope: "state", Name: state, Count: len(rows), Points: make([]TimelinePoint, 0, len(rows))}
	for _, r := range rows {
		result.Points = append(result.Points, TimelinePoint{
			Date:             r.Date.Format("2006-01-02"),
			Cases:            r.Cases,
			Deaths:           r.Deaths,
			Population:       r.Population,
			DeathsPerMillion: r.DeathsPerMillion,
			NewCases:         r.NewCases,
			NewDeaths:        r.NewDeaths,
		})
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// GetNationalTimeline 全国时间线
func (s *ReportService) GetNationalTimeline(ctx context.Context) (*TimelineResult, error) {
	key := "timeline:national"
	if v, ok := s.cache.Get(key); ok {
		if r, ok := v.(*TimelineResult); ok {
			return r, nil
		}
	}

	rows, err := s.reportRepo.ListNationalDays(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("全国时间线%w", ErrNoData)
	}

	result := &TimelineResult{Scope: "national", Name: "US", Count: len(rows), Points: make([]TimelinePoint, 0, len(rows))}
	for _, r := range rows {
		result.Points = append(result.Points, TimelinePoint{
			Date:             r.Date.Format("2006-01-02"),
			Cases:            r.Cases,
			Deaths:           r.Deaths,
			Population:       r.Population,
			DeathsPerMillion: r.DeathsPerMillion,
			NewCases:         r.NewCases,
			NewDeaths:        r.NewDeaths,
		})
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// GetCountryTimeline 单个国家的时间线
func (s *ReportService) GetCountryTimeline(ctx context.Context, country string) (*TimelineResult, error) {
	key := "timeline:country:" + country
	if v, ok := s.cache.Get(key); ok {
		if r, ok := v.(*TimelineResult); ok {
			return r, nil
		}
	}

	rows, err := s.reportRepo.ListCountryDays(ctx, country)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("国家%s%w", country, ErrNoData)
	}

	result := &TimelineResult{Scope: "country", Name: country, Count: len(rows), Points: make([]TimelinePoint, 0, len(rows))}
	for _, r := range rows {
		result.Points = append(result.Points, TimelinePoint{
			Date:             r.Date.Format("2006-01-02"),
			Cases:            r.Cases,
			Deaths:           r.Deaths,
			Population:       r.Population,
			DeathsPerMillion: r.DeathsPerMillion,
			NewCases:         r.NewCases,
			NewDeaths:        r.NewDeaths,
		})
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// GetRegression 最新一次拟合详情；从未拟合过返回 (nil, nil)
func (s *ReportService) GetRegression(ctx context.Context) (*RegressionResult, error) {
	key := "regression:latest"
	if v, ok := s.cache.Get(key); ok {
		if r, ok := v.(*RegressionResult); ok {
			return r, nil
		}
	}

	fit, err := s.fitRepo.GetLatestFit(ctx)
	if err != nil {
		return nil, err
	}
	if fit == nil {
		return nil, nil
	}

	result := &RegressionResult{
		FitUUID:      fit.FitUUID,
		Response:     fit.Response,
		Predictor:    fit.Predictor,
		Intercept:    fit.Intercept,
		Slope:        fit.Slope,
		StdErrIntcpt: fit.StdErrIntcpt,
		StdErrSlope:  fit.StdErrSlope,
		PValueIntcpt: fit.PValueIntcpt,
		PValueSlope:  fit.PValueSlope,
		RSquared:     fit.RSquared,
		NObs:         fit.NObs,
		FittedAt:     fit.CreatedAt.UnixMilli(),
	}
	if err := json.Unmarshal(fit.GridPoints, &result.GridPoints); err != nil {
		return nil, fmt.Errorf("解析网格预测点失败: %w", err)
	}
	if err := json.Unmarshal(fit.ObservedPoints, &result.ObservedPoints); err != nil {
		return nil, fmt.Errorf("解析观测预测点失败: %w", err)
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// ListRuns 最近的同步运行记录（运维排查用，不走缓存）
func (s *ReportService) ListRuns(ctx context.Context, limit int) ([]RunItem, error) {
	rows, err := s.reportRepo.ListSyncRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]RunItem, 0, len(rows))
	for _, r := range rows {
		item := RunItem{
			RunUUID:    r.RunUUID,
			Dataset:    r.Dataset,
			Status:     r.Status,
			RowCounts:  json.RawMessage(r.RowCounts),
			ErrMessage: r.ErrMessage,
			StartedAt:  r.StartedAt.UnixMilli(),
		}
		if r.FinishedAt != nil {
			ms := r.FinishedAt.UnixMilli()
			item.FinishedAt = &ms
		}
		items = append(items, item)
	}
	return items, nil
}
