package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"

	"github.com/sirupsen/logrus"
)

// ExportService 聚合表CSV导出服务
// 直连仓储做全量导出，不走报表缓存
type ExportService struct {
	reportRepo repository.ReportRepository
	logger     *logrus.Logger
}

// NewExportService 创建 ExportService
func NewExportService(reportRepo repository.ReportRepository, logger *logrus.Logger) *ExportService {
	return &ExportService{
		reportRepo: reportRepo,
		logger:     logger,
	}
}

// ExportableTables 可导出的聚合表名
var ExportableTables = map[string]bool{
	"us_state_days":    true,
	"us_national_days": true,
	"country_days":     true,
	"state_summaries":  true,
}

// ExportTable 把指定聚合表全量写成CSV（首行表头，空值写空串）
func (s *ExportService) ExportTable(ctx context.Context, table string, w io.Writer) error {
	if !ExportableTables[table] {
		return fmt.Errorf("不支持导出的表: %s", table)
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	var err error
	switch table {
	case "us_state_days":
		err = s.exportStateDays(ctx, cw)
	case "us_national_days":
		err = s.exportNationalDays(ctx, cw)
	case "country_days":
		err = s.exportCountryDays(ctx, cw)
	case "state_summaries":
		err = s.exportStateSummaries(ctx, cw)
	}
	if err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	return nil
}

func (s *ExportService) exportStateDays(ctx context.Context, cw *csv.Writer) error {
	rows, err := s.reportRepo.ListStateDays(ctx, "")
	if err != nil {
		return fmt.Errorf("查询州级日表失败: %w", err)
	}

	if err := cw.Write([]string{"province_state", "date", "cases", "deaths", "population", "deaths_per_million", "new_cases", "new_deaths"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ProvinceState,
			fmtDate(r.Date),
			strconv.FormatInt(r.Cases, 10),
			strconv.FormatInt(r.Deaths, 10),
			strconv.FormatInt(r.Population, 10),
			fmtFloatPtr(r.DeathsPerMillion),
			fmtIntPtr(r.NewCases),
			fmtIntPtr(r.NewDeaths),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	s.logger.Infof("导出 us_state_days 完成，共 %d 行", len(rows))
	return nil
}

func (s *ExportService) exportNationalDays(ctx context.Context, cw *csv.Writer) error {
	rows, err := s.reportRepo.ListNationalDays(ctx)
	if err != nil {
		return fmt.Errorf("查询全国日表失败: %w", err)
	}

	if err := cw.Write([]string{"date", "cases", "deaths", "population", "deaths_per_million", "new_cases", "new_deaths"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			fmtDate(r.Date),
			strconv.FormatInt(r.Cases, 10),
			strconv.FormatInt(r.Deaths, 10),
			strconv.FormatInt(r.Population, 10),
			fmtFloatPtr(r.DeathsPerMillion),
			fmtIntPtr(r.NewCases),
			fmtIntPtr(r.NewDeaths),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	s.logger.Infof("导出 us_national_days 完成，共 %d 行", len(rows))
	return nil
}

func (s *ExportService) exportCountryDays(ctx context.Context, cw *csv.Writer) error {
	rows, err := s.reportRepo.ListCountryDays(ctx, "")
	if err != nil {
		return fmt.Errorf("查询国家日表失败: %w", err)
	}

	if err := cw.Write([]string{"country_region", "date", "cases", "deaths", "population", "deaths_per_million", "new_cases", "new_deaths"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.CountryRegion,
			fmtDate(r.Date),
			strconv.FormatInt(r.Cases, 10),
			strconv.FormatInt(r.Deaths, 10),
			strconv.FormatInt(r.Population, 10),
			fmtFloatPtr(r.DeathsPerMillion),
			fmtIntPtr(r.NewCases),
			fmtIntPtr(r.NewDeaths),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	s.logger.Infof("导出 country_days 完成，共 %d 行", len(rows))
	return nil
}

func (s *ExportService) exportStateSummaries(ctx context.Context, cw *csv.Writer) error {
	rows, err := s.reportRepo.ListStateSummaries(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("查询州级汇总失败: %w", err)
	}

	if err := cw.Write([]string{"province_state", "cases", "deaths", "population", "cases_per_thousand", "deaths_per_thousand"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ProvinceState,
			strconv.FormatInt(r.Cases, 10),
			strconv.FormatInt(r.Deaths, 10),
			strconv.FormatInt(r.Population, 10),
			fmtFloat(r.CasesPerThousand),
			fmtFloat(r.DeathsPerThousand),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	s.logger.Infof("导出 state_summaries 完成，共 %d 行", len(rows))
	return nil
}

// 工具函数：日期列统一 YYYY-MM-DD
func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtFloat(*v)
}

func fmtIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
