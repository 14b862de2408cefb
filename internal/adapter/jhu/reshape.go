package jhu

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
)

// ParseError 上游CSV不符合预期格式时返回
// 整文件解析失败即同步失败，不做行级跳过（静默丢行会让累计口径失真）
type ParseError struct {
	File   string // 上游文件相对路径
	Row    int    // 数据行号（1起算，0表示表头）
	Column string // 列名
	Value  string // 原始单元格内容
	Reason string // 失败原因
}

func (e *ParseError) Error() string {
	pos := "表头"
	if e.Row > 0 {
		pos = fmt.Sprintf("第%d行", e.Row)
	}
	if e.Column == "" {
		return fmt.Sprintf("解析%s失败（%s）: %s", e.File, pos, e.Reason)
	}
	return fmt.Sprintf("解析%s失败（%s，列%s，值%q）: %s", e.File, pos, e.Column, e.Value, e.Reason)
}

// 全球宽表与美国宽表的标识列名（JHU两套文件命名不一致，斜杠与下划线并存）
const (
	colGlobalProvince = "Province/State"
	colGlobalCountry  = "Country/Region"
	colUSAdmin2       = "Admin2"
	colUSProvince     = "Province_State"
	colUSCountry      = "Country_Region"
	colUSCombinedKey  = "Combined_Key"
	colPopulation     = "Population"
)

// 日期表头为美式无前导零格式（如 1/22/20），个别镜像会改成四位年份
var dateHeaderLayouts = []string{"1/2/06", "1/2/2006"}

// wideLayout 宽表列布局（标识列下标 + 日期列起点与解析结果）
type wideLayout struct {
	idIndex   map[string]int
	dateStart int
	dates     []time.Time // 与 Header[dateStart:] 对齐
}

// resolveLayout 识别宽表结构：第一个能按日期解析的表头即日期区起点，
// 之后的所有表头必须全部是日期，否则视为格式损坏
func resolveLayout(t *model.RawTable) (*wideLayout, error) {
	layout := &wideLayout{idIndex: make(map[string]int), dateStart: -1}

	for i, h := range t.Header {
		if _, err := parseDateHeader(h); err == nil {
			layout.dateStart = i
			break
		}
		layout.idIndex[h] = i
	}
	if layout.dateStart < 0 {
		return nil, &ParseError{File: t.File, Reason: "未找到日期列"}
	}

	for _, h := range t.Header[layout.dateStart:] {
		d, err := parseDateHeader(h)
		if err != nil {
			return nil, &ParseError{File: t.File, Column: h, Value: h, Reason: "日期区混入非日期表头"}
		}
		layout.dates = append(layout.dates, d)
	}
	return layout, nil
}

// meltTable 宽表融化为长表：每条地区记录 × 每个日期列 = 一行观测
// us=true 时按美国县级列名取标识，且死亡表额外携带Population列
func (j *Adapter) meltTable(t *model.RawTable, us bool) ([]*model.SeriesPoint, error) {
	layout, err := resolveLayout(t)
	if err != nil {
		return nil, err
	}

	// 1. 校验必需标识列
	required := []string{colGlobalProvince, colGlobalCountry}
	if us {
		required = []string{colUSAdmin2, colUSProvince, colUSCountry, colUSCombinedKey}
	}
	for _, col := range required {
		if _, ok := layout.idIndex[col]; !ok {
			return nil, &ParseError{File: t.File, Column: col, Reason: "缺少必需标识列"}
		}
	}
	popIdx, hasPop := -1, false
	if us {
		popIdx, hasPop = layout.idIndex[colPopulation]
	}

	// 2. 逐记录逐日期列展开（Lat/Long等无关标识列在此被丢弃）
	points := make([]*model.SeriesPoint, 0, len(t.Records)*len(layout.dates))
	for r, rec := range t.Records {
		var base model.SeriesPoint
		if us {
			base.Admin2 = rec[layout.idIndex[colUSAdmin2]]
			base.ProvinceState = rec[layout.idIndex[colUSProvince]]
			base.CountryRegion = rec[layout.idIndex[colUSCountry]]
			base.CombinedKey = rec[layout.idIndex[colUSCombinedKey]]
			if hasPop {
				base.Population = j.parsePopulationCell(t.File, r+1, rec[popIdx])
			}
		} else {
			base.ProvinceState = rec[layout.idIndex[colGlobalProvince]]
			base.CountryRegion = rec[layout.idIndex[colGlobalCountry]]
		}

		for i, d := range layout.dates {
			cell := strings.TrimSpace(rec[layout.dateStart+i])
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, &ParseError{
					File:   t.File,
					Row:    r + 1,
					Column: t.Header[layout.dateStart+i],
					Value:  cell,
					Reason: "数值列出现非数值",
				}
			}
			p := base
			p.Date = d
			p.Value = v
			points = append(points, &p)
		}
	}

	return points, nil
}

// parseLookup 解析地区->人口查找表，仅保留国家/省级行（Admin2为空）
// 县级行的人口走美国死亡表自带的Population列，不从查找表取
func (j *Adapter) parseLookup(t *model.RawTable) ([]*model.LookupEntry, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[h] = i
	}
	for _, col := range []string{colUSAdmin2, colUSProvince, colUSCountry, colUSCombinedKey, colPopulation} {
		if _, ok := idx[col]; !ok {
			return nil, &ParseError{File: t.File, Column: col, Reason: "缺少必需标识列"}
		}
	}

	var entries []*model.LookupEntry
	for r, rec := range t.Records {
		if rec[idx[colUSAdmin2]] != "" {
			continue
		}
		entries = append(entries, &model.LookupEntry{
			ProvinceState: rec[idx[colUSProvince]],
			CountryRegion: rec[idx[colUSCountry]],
			CombinedKey:   rec[idx[colUSCombinedKey]],
			Population:    j.parsePopulationCell(t.File, r+1, rec[idx[colPopulation]]),
		})
	}
	return entries, nil
}

// 工具函数：解析人口单元格（空或无法解析按缺失处理，人口缺失不阻断同步）
func (j *Adapter) parsePopulationCell(file string, row int, cell string) *int64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		j.logger.Warnf("解析%s第%d行人口失败（值%q），按缺失处理", file, row, cell)
		return nil
	}
	v := int64(f)
	return &v
}

// 工具函数：解析日期表头
func parseDateHeader(h string) (time.Time, error) {
	h = strings.TrimSpace(h)
	var lastErr error
	for _, layout := range dateHeaderLayouts {
		d, err := time.Parse(layout, h)
		if err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
