package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/interfaces"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"

	"github.com/sirupsen/logrus"
)

// AggregationService 聚合服务：县级/全球日表归并为州级、全国、国家级聚合表与州级汇总
type AggregationService struct {
	aggRepo repository.AggregateRepository
	logger  *logrus.Logger
}

func NewAggregationService(aggRepo repository.AggregateRepository, logger *logrus.Logger) *AggregationService {
	return &AggregationService{
		aggRepo: aggRepo,
		logger:  logger,
	}
}

// Run 在同步落库后调用，按数据集重建对应的聚合表，返回各表产出行数
func (s *AggregationService) Run(ctx context.Context, dataset model.Dataset) (map[string]int, error) {
	counts := make(map[string]int)

	switch dataset {
	case model.DatasetUS:
		countyRows, err := s.aggRepo.ListUSCountyDays(ctx)
		if err != nil {
			return nil, fmt.Errorf("拉取县级日表失败: %w", err)
		}
		if len(countyRows) == 0 {
			s.logger.Info("聚合任务：无县级数据可聚合")
			return counts, nil
		}

		// 县级 -> 州级 -> 全国，逐级求和再差分
		stateDays := rollupStateDays(countyRows)
		if err := s.aggRepo.UpsertUSStateDays(ctx, stateDays); err != nil {
			return nil, fmt.Errorf("写入州级日表失败: %w", err)
		}
		nationalDays := rollupNationalDays(stateDays)
		if err := s.aggRepo.UpsertUSNationalDays(ctx, nationalDays); err != nil {
			return nil, fmt.Errorf("写入全国日表失败: %w", err)
		}
		summaries := buildStateSummaries(stateDays)
		if err := s.aggRepo.ReplaceStateSummaries(ctx, summaries); err != nil {
			return nil, fmt.Errorf("写入州级汇总失败: %w", err)
		}

		counts["us_state_days"] = len(stateDays)
		counts["us_national_days"] = len(nationalDays)
		counts["state_summaries"] = len(summaries)
		s.logger.Infof("聚合任务完成：%d条县级行归并为%d个州日、%d个全国日、%d个州汇总",
			len(countyRows), len(stateDays), len(nationalDays), len(summaries))

	case model.DatasetGlobal:
		globalRows, err := s.aggRepo.ListGlobalDays(ctx)
		if err != nil {
			return nil, fmt.Errorf("拉取全球日表失败: %w", err)
		}
		if len(globalRows) == 0 {
			s.logger.Info("聚合任务：无全球数据可聚合")
			return counts, nil
		}

		countryDays := rollupCountryDays(globalRows)
		if err := s.aggRepo.UpsertCountryDays(ctx, countryDays); err != nil {
			return nil, fmt.Errorf("写入国家日表失败: %w", err)
		}

		counts["country_days"] = len(countryDays)
		s.logger.Infof("聚合任务完成：%d条全球行归并为%d个国家日", len(globalRows), len(countryDays))

	default:
		return nil, fmt.Errorf("不支持的数据集: %s", dataset)
	}

	return counts, nil
}

type stateDayKey struct {
	state string
	date  time.Time
}

type countryDayKey struct {
	country string
	date    time.Time
}

// rollupStateDays 县级行按 州+日期 求和（缺失观测按0计入），排序后补充派生列
func rollupStateDays(rows []*model.USCountyDay) []*model.USStateDay {
	grouped := make(map[stateDayKey]*model.USStateDay)
	for _, r := range rows {
		k := stateDayKey{state: r.ProvinceState, date: r.Date}
		agg, ok := grouped[k]
		if !ok {
			agg = &model.USStateDay{ProvinceState: r.ProvinceState, Date: r.Date}
			grouped[k] = agg
		}
		if r.Cases != nil {
			agg.Cases += *r.Cases
		}
		if r.Deaths != nil {
			agg.Deaths += *r.Deaths
		}
		if r.Population != nil {
			agg.Population += *r.Population
		}
	}

	out := interfaces.MapValues(grouped)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProvinceState != out[j].ProvinceState {
			return out[i].ProvinceState < out[j].ProvinceState
		}
		return out[i].Date.Before(out[j].Date)
	})

	// 差分必须在日期排序之后做，否则"新增"失去意义
	for i, row := range out {
		row.DeathsPerMillion = perMillion(row.Deaths, row.Population)
		if i > 0 && out[i-1].ProvinceState == row.ProvinceState {
			nc := row.Cases - out[i-1].Cases
			nd := row.Deaths - out[i-1].Deaths
			row.NewCases = &nc
			row.NewDeaths = &nd
		}
	}
	return out
}

// rollupNationalDays 州级行按日期求和为全国序列，排序后补充派生列
func rollupNationalDays(rows []*model.USStateDay) []*model.USNationalDay {
	grouped := make(map[time.Time]*model.USNationalDay)
	for _, r := range rows {
		agg, ok := grouped[r.Date]
		if !ok {
			agg = &model.USNationalDay{Date: r.Date}
			grouped[r.Date] = agg
		}
		agg.Cases += r.Cases
		agg.Deaths += r.Deaths
		agg.Population += r.Population
	}

	out := interfaces.MapValues(grouped)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	for i, row := range out {
		row.DeathsPerMillion = perMillion(row.Deaths, row.Population)
		if i > 0 {
			nc := row.Cases - out[i-1].Cases
			nd := row.Deaths - out[i-1].Deaths
			row.NewCases = &nc
			row.NewDeaths = &nd
		}
	}
	return out
}

// rollupCountryDays 全球行按 国家+日期 求和（抹平省级拆分），排序后补充派生列
func rollupCountryDays(rows []*model.GlobalDay) []*model.CountryDay {
	grouped := make(map[countryDayKey]*model.CountryDay)
	for _, r := range rows {
		k := countryDayKey{country: r.CountryRegion, date: r.Date}
		agg, ok := grouped[k]
		if !ok {
			agg = &model.CountryDay{CountryRegion: r.CountryRegion, Date: r.Date}
			grouped[k] = agg
		}
		agg.Cases += r.Cases
		if r.Deaths != nil {
			agg.Deaths += *r.Deaths
		}
		if r.Population != nil {
			agg.Population += *r.Population
		}
	}

	out := interfaces.MapValues(grouped)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CountryRegion != out[j].CountryRegion {
			return out[i].CountryRegion < out[j].CountryRegion
		}
		return out[i].Date.Before(out[j].Date)
	})

	for i, row := range out {
		row.DeathsPerMillion = perMillion(row.Deaths, row.Population)
		if i > 0 && out[i-1].CountryRegion == row.CountryRegion {
			nc := row.Cases - out[i-1].Cases
			nd := row.Deaths - out[i-1].Deaths
			row.NewCases = &nc
			row.NewDeaths = &nd
		}
	}
	return out
}

// buildStateSummaries 州级日表归并为每州一条汇总（累计列取峰值，即最近累计值）
// 确诊或人口为0的州剔除，千人率才有定义
func buildStateSummaries(days []*model.USStateDay) []*model.StateSummary {
	byState := make(map[string]*model.StateSummary)
	for _, d := range days {
		sum, ok := byState[d.ProvinceState]
		if !ok {
			sum = &model.StateSummary{ProvinceState: d.ProvinceState}
			byState[d.ProvinceState] = sum
		}
		if d.Cases > sum.Cases {
			sum.Cases = d.Cases
		}
		if d.Deaths > sum.Deaths {
			sum.Deaths = d.Deaths
		}
		if d.Population > sum.Population {
			sum.Population = d.Population
		}
	}

	out := make([]*model.StateSummary, 0, len(byState))
	for _, sum := range interfaces.MapValues(byState) {
		if sum.Cases == 0 || sum.Population == 0 {
			continue
		}
		sum.CasesPerThousand = float64(sum.Cases) / float64(sum.Population) * 1000
		sum.DeathsPerThousand = float64(sum.Deaths) / float64(sum.Population) * 1000
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProvinceState < out[j].ProvinceState })
	return out
}

// 工具函数：每百万人死亡数（人口为0或缺失时无定义）
func perMillion(deaths, population int64) *float64 {
	if population <= 0 {
		return nil
	}
	v := float64(deaths) / float64(population) * 1e6
	return &v
}
