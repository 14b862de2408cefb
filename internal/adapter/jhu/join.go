package jhu

import (
	"sort"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/interfaces"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"github.com/sirupsen/logrus"
)

type regionDayKey struct {
	province string
	country  string
	date     time.Time
}

type lookupKey struct {
	province string
	country  string
}

type countyDayKey struct {
	combinedKey string
	date        time.Time
}

// joinGlobalDays 确诊与死亡长表按 地区+日期 全外连接，仅保留累计确诊>0的行，
// 再左连接查找表补充组合键与人口（未命中只告警，不阻断同步）
func (j *Adapter) joinGlobalDays(cases, deaths []*model.SeriesPoint, entries []*model.LookupEntry) []*model.GlobalDay {
	merged := make(map[regionDayKey]*model.GlobalDay, len(cases))
	for _, p := range cases {
		k := regionDayKey{province: p.ProvinceState, country: p.CountryRegion, date: p.Date}
		merged[k] = &model.GlobalDay{
			ProvinceState: p.ProvinceState,
			CountryRegion: p.CountryRegion,
			Date:          p.Date,
			Cases:         p.Value,
		}
	}
	for _, p := range deaths {
		k := regionDayKey{province: p.ProvinceState, country: p.CountryRegion, date: p.Date}
		d := p.Value
		if row, ok := merged[k]; ok {
			row.Deaths = &d
			continue
		}
		// 仅死亡表出现的行：确诊记0，随后的>0过滤会将其剔除
		merged[k] = &model.GlobalDay{
			ProvinceState: p.ProvinceState,
			CountryRegion: p.CountryRegion,
			Date:          p.Date,
			Cases:         0,
			Deaths:        &d,
		}
	}

	// 1. 过滤累计确诊>0
	rows := make([]*model.GlobalDay, 0, len(merged))
	for _, row := range interfaces.MapValues(merged) {
		if row.Cases > 0 {
			rows = append(rows, row)
		}
	}

	// 2. 左连接查找表（按省+国家精确匹配）
	lookupIdx := j.buildLookupIndex(entries)
	missed := make(map[lookupKey]struct{})
	for _, row := range rows {
		e, ok := lookupIdx[lookupKey{province: row.ProvinceState, country: row.CountryRegion}]
		if !ok {
			missed[lookupKey{province: row.ProvinceState, country: row.CountryRegion}] = struct{}{}
			continue
		}
		ck := e.CombinedKey
		row.CombinedKey = &ck
		row.Population = e.Population
	}
	for k := range missed {
		j.logger.WithFields(logrus.Fields{
			"province_state": k.province,
			"country_region": k.country,
		}).Warn("查找表未命中该地区，组合键与人口记缺失")
	}

	sort.Slice(rows, func(a, b int) bool {
		if rows[a].CountryRegion != rows[b].CountryRegion {
			return rows[a].CountryRegion < rows[b].CountryRegion
		}
		if rows[a].ProvinceState != rows[b].ProvinceState {
			return rows[a].ProvinceState < rows[b].ProvinceState
		}
		return rows[a].Date.Before(rows[b].Date)
	})
	return rows
}

// joinUSCountyDays 美国县级确诊与死亡长表按 组合键+日期 全外连接
// 与全球表不同：不做确诊>0过滤，人口取死亡表自带的Population列
func (j *Adapter) joinUSCountyDays(cases, deaths []*model.SeriesPoint) []*model.USCountyDay {
	merged := make(map[countyDayKey]*model.USCountyDay, len(cases))
	for _, p := range cases {
		c := p.Value
		merged[countyDayKey{combinedKey: p.CombinedKey, date: p.Date}] = &model.USCountyDay{
			Admin2:        p.Admin2,
			ProvinceState: p.ProvinceState,
			CountryRegion: p.CountryRegion,
			CombinedKey:   p.CombinedKey,
			Date:          p.Date,
			Cases:         &c,
		}
	}
	for _, p := range deaths {
		k := countyDayKey{combinedKey: p.CombinedKey, date: p.Date}
		d := p.Value
		if row, ok := merged[k]; ok {
			row.Deaths = &d
			row.Population = p.Population
			continue
		}
		merged[k] = &model.USCountyDay{
			Admin2:        p.Admin2,
			ProvinceState: p.ProvinceState,
			CountryRegion: p.CountryRegion,
			CombinedKey:   p.CombinedKey,
			Date:          p.Date,
			Deaths:        &d,
			Population:    p.Population,
		}
	}

	rows := interfaces.MapValues(merged)
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].CombinedKey != rows[b].CombinedKey {
			return rows[a].CombinedKey < rows[b].CombinedKey
		}
		return rows[a].Date.Before(rows[b].Date)
	})
	return rows
}

// 工具函数：查找表建索引（重复地区保留首条）
func (j *Adapter) buildLookupIndex(entries []*model.LookupEntry) map[lookupKey]*model.LookupEntry {
	idx := make(map[lookupKey]*model.LookupEntry, len(entries))
	dup := 0
	for _, e := range entries {
		k := lookupKey{province: e.ProvinceState, country: e.CountryRegion}
		if _, exists := idx[k]; exists {
			dup++
			continue
		}
		idx[k] = e
	}
	if dup > 0 {
		j.logger.Warnf("查找表存在%d条重复地区，保留首条", dup)
	}
	return idx
}
