package service

import (
	"context"
	"fmt"
	"math"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"

	"github.com/sirupsen/logrus"
)

// ChartService 图表配置服务：把时间线/汇总/回归组装为前端可直接渲染的图表配置
// 只产出JSON配置，不做图片渲染；底层查询已在ReportService缓存
type ChartService struct {
	reportSvc *ReportService
	cfg       *config.Config
	logger    *logrus.Logger
}

// NewChartService 创建 ChartService
func NewChartService(reportSvc *ReportService, cfg *config.Config, logger *logrus.Logger) *ChartService {
	return &ChartService{
		reportSvc: reportSvc,
		cfg:       cfg,
		logger:    logger,
	}
}

// ===== 图表 DTO =====

// ChartConfig 一张图表的渲染配置
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // line/bar/scatter
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries 图表中的一条序列
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint 单个数据点（回归散点带x坐标，时间线/柱状图只用Label+Value）
type ChartPoint struct {
	Label string   `json:"label"`
	Value float64  `json:"value"`
	X     *float64 `json:"x,omitempty"`
}

// 序列默认配色
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// timelineMeasures 时间线图表可选指标
var timelineMeasures = map[string]bool{
	"cases":              true,
	"deaths":             true,
	"deaths_per_million": true,
	"new_cases":          true,
	"new_deaths":         true,
}

// BuildTimelineChart 时间线折线图（scope: state/national/country）
// 指标无定义的日期（首日差分、人口缺失的每百万死亡）直接不出点
func (s *ChartService) BuildTimelineChart(ctx context.Context, scope, name, measure string) (*ChartConfig, error) {
	if !timelineMeasures[measure] {
		return nil, fmt.Errorf("不支持的指标: %s", measure)
	}

	var tl *TimelineResult
	var err error
	switch scope {
	case "state":
		tl, err = s.reportSvc.GetStateTimeline(ctx, name)
	case "national":
		tl, err = s.reportSvc.GetNationalTimeline(ctx)
	case "country":
		tl, err = s.reportSvc.GetCountryTimeline(ctx, name)
	default:
		return nil, fmt.Errorf("不支持的范围: %s", scope)
	}
	if err != nil {
		return nil, err
	}

	points := make([]ChartPoint, 0, len(tl.Points))
	for _, p := range tl.Points {
		v, ok := timelineMeasureValue(p, measure)
		if !ok {
			continue
		}
		points = append(points, ChartPoint{Label: p.Date, Value: roundTo2(v)})
	}

	return &ChartConfig{
		ChartType:  "line",
		Title:      fmt.Sprintf("%s %s", tl.Name, measure),
		XAxis:      "date",
		YAxis:      measure,
		Series:     []ChartSeries{{Name: tl.Name, Data: points, Color: defaultColors[0]}},
		Colors:     assignColors(1),
		ShowLegend: true,
		ShowGrid:   true,
	}, nil
}

// BuildTopChart 州级汇总排行柱状图（measure用汇总表列名，limit<=0取配置默认值）
func (s *ChartService) BuildTopChart(ctx context.Context, measure string, limit int) (*ChartConfig, error) {
	if limit <= 0 {
		limit = s.cfg.Report.TopLimit
	}
	if limit <= 0 {
		limit = 10
	}

	list, err := s.reportSvc.ListStates(ctx, measure, limit)
	if err != nil {
		return nil, err
	}

	points := make([]ChartPoint, 0, len(list.Items))
	for _, it := range list.Items {
		points = append(points, ChartPoint{Label: it.ProvinceState, Value: roundTo2(summaryMeasureValue(it, measure))})
	}

	return &ChartConfig{
		ChartType:  "bar",
		Title:      fmt.Sprintf("Top %d states by %s", limit, measure),
		XAxis:      "province_state",
		YAxis:      measure,
		Series:     []ChartSeries{{Name: measure, Data: points, Color: defaultColors[1]}},
		Colors:     assignColors(1),
		ShowLegend: false,
		ShowGrid:   true,
	}, nil
}

// BuildRegressionChart 回归散点+拟合线（观测一条序列，网格预测一条序列）
func (s *ChartService) BuildRegressionChart(ctx context.Context) (*ChartConfig, error) {
	reg, err := s.reportSvc.GetRegression(ctx)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("回归拟合%w", ErrNoData)
	}

	observed := make([]ChartPoint, 0, len(reg.ObservedPoints))
	for _, p := range reg.ObservedPoints {
		x := p.X
		actual := 0.0
		if p.Actual != nil {
			actual = *p.Actual
		}
		observed = append(observed, ChartPoint{Label: p.ProvinceState, Value: roundTo2(actual), X: &x})
	}

	fitted := make([]ChartPoint, 0, len(reg.GridPoints))
	for _, p := range reg.GridPoints {
		x := p.X
		fitted = append(fitted, ChartPoint{Label: fmt.Sprintf("%.2f", p.X), Value: roundTo2(p.Predicted), X: &x})
	}

	return &ChartConfig{
		ChartType: "scatter",
		Title:     fmt.Sprintf("%s ~ %s", reg.Response, reg.Predictor),
		XAxis:     reg.Predictor,
		YAxis:     reg.Response,
		Series: []ChartSeries{
			{Name: "observed", Data: observed, Color: defaultColors[0]},
			{Name: "fitted", Data: fitted, Color: defaultColors[3]},
		},
		Colors:     assignColors(2),
		ShowLegend: true,
		ShowGrid:   true,
	}, nil
}

// 工具函数：从时间线点取指标值（差分首日、人口缺失时无定义）
func timelineMeasureValue(p TimelinePoint, measure string) (float64, bool) {
	switch measure {
	case "cases":
		return float64(p.Cases), true
	case "deaths":
		return float64(p.Deaths), true
	case "deaths_per_million":
		if p.DeathsPerMillion == nil {
			return 0, false
		}
		return *p.DeathsPerMillion, true
	case "new_cases":
		if p.NewCases == nil {
			return 0, false
		}
		return float64(*p.NewCases), true
	case "new_deaths":
		if p.NewDeaths == nil {
			return 0, false
		}
		return float64(*p.NewDeaths), true
	}
	return 0, false
}

// 工具函数：从州级汇总取指标值（measure已由仓储层白名单兜底）
func summaryMeasureValue(it StateSummaryItem, measure string) float64 {
	switch measure {
	case "cases":
		return float64(it.Cases)
	case "deaths":
		return float64(it.Deaths)
	case "population":
		return float64(it.Population)
	case "cases_per_thousand":
		return it.CasesPerThousand
	default:
		return it.DeathsPerThousand
	}
}

// 工具函数：保留两位小数
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// 工具函数：按序列数分配颜色
func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
