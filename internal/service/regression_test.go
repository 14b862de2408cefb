package service

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitOLSPerfectLine(t *testing.T) {
	// y = 2 + 0.5x 无噪声：残差为0，标准误为0，t统计量无定义
	xs := []float64{1, 2, 3, 4}
	ys := []float64{2.5, 3, 3.5, 4}

	res, err := FitOLS(xs, ys)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Intercept, 1e-9)
	assert.InDelta(t, 0.5, res.Slope, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	assert.Equal(t, 4, res.N)

	require.NotNil(t, res.StdErrSlope)
	assert.InDelta(t, 0.0, *res.StdErrSlope, 1e-12)
	assert.Nil(t, res.PValueSlope)
	assert.Nil(t, res.PValueIntercept)

	assert.InDelta(t, 4.5, res.Predict(5), 1e-9)
}

func TestFitOLSKnownInference(t *testing.T) {
	// 手算样本：xs={1,2,3}, ys={1,2,4}
	// slope=1.5, intercept=-2/3, rss=1/6, tss=42/9, sxx=2
	xs := []float64{1, 2, 3}
	ys := []float64{1, 2, 4}

	res, err := FitOLS(xs, ys)
	require.NoError(t, err)

	assert.InDelta(t, 1.5, res.Slope, 1e-9)
	assert.InDelta(t, -2.0/3.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0-(1.0/6.0)/(42.0/9.0), res.RSquared, 1e-9)

	seSlope := math.Sqrt((1.0 / 6.0) / 2.0)
	seIntcpt := math.Sqrt((1.0 / 6.0) * (1.0/3.0 + 4.0/2.0))
	require.NotNil(t, res.StdErrSlope)
	assert.InDelta(t, seSlope, *res.StdErrSlope, 1e-9)
	require.NotNil(t, res.StdErrIntercept)
	assert.InDelta(t, seIntcpt, *res.StdErrIntercept, 1e-9)

	// 自由度n-2=1的t分布即柯西分布，双侧p = 2*(0.5 - arctan(|t|)/π)
	pSlope := 2 * (0.5 - math.Atan(1.5/seSlope)/math.Pi)
	pIntcpt := 2 * (0.5 - math.Atan((2.0/3.0)/seIntcpt)/math.Pi)
	require.NotNil(t, res.PValueSlope)
	assert.InDelta(t, pSlope, *res.PValueSlope, 1e-6)
	require.NotNil(t, res.PValueIntercept)
	assert.InDelta(t, pIntcpt, *res.PValueIntercept, 1e-6)
}

func TestFitOLSTwoObservations(t *testing.T) {
	// 两点恰好确定直线：可拟合，但自由度不足，推断统计缺失
	res, err := FitOLS([]float64{1, 2}, []float64{1, 3})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Slope, 1e-9)
	assert.InDelta(t, -1.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	assert.Nil(t, res.StdErrSlope)
	assert.Nil(t, res.PValueSlope)
}

func TestFitOLSDegenerate(t *testing.T) {
	// 自变量只有一个取值，斜率不可辨识
	_, err := FitOLS([]float64{3, 3, 3}, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrDegenerateFit)

	// 空输入同样退化
	_, err = FitOLS(nil, nil)
	require.ErrorIs(t, err, ErrDegenerateFit)
}

func TestFitOLSLengthMismatch(t *testing.T) {
	_, err := FitOLS([]float64{1, 2}, []float64{1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDegenerateFit)
}

func TestPredictGrid(t *testing.T) {
	res := &FitResult{Intercept: 0, Slope: 1}
	pts := predictGrid(res, []float64{3, 1, 2}, 5)

	require.Len(t, pts, 5)
	assert.InDelta(t, 1.0, pts[0].X, 1e-9)
	assert.InDelta(t, 3.0, pts[4].X, 1e-9)
	// 等距网格
	assert.InDelta(t, 0.5, pts[1].X-pts[0].X, 1e-9)
	assert.InDelta(t, 0.5, pts[4].X-pts[3].X, 1e-9)
	// 预测值沿直线
	assert.InDelta(t, 2.0, pts[2].Predicted, 1e-9)
	assert.Nil(t, pts[0].Actual)

	// 非法点数回落默认50
	pts = predictGrid(res, []float64{1, 3}, 0)
	assert.Len(t, pts, 50)
	assert.InDelta(t, 1.0, pts[0].X, 1e-9)
	assert.InDelta(t, 3.0, pts[49].X, 1e-9)
}

func TestRefit(t *testing.T) {
	reportRepo := newFakeReportRepo()
	reportRepo.summaries = []*model.StateSummary{
		{ProvinceState: "Alabama", CasesPerThousand: 10, DeathsPerThousand: 0.2},
		{ProvinceState: "Alaska", CasesPerThousand: 20, DeathsPerThousand: 0.3},
		{ProvinceState: "Arizona", CasesPerThousand: 30, DeathsPerThousand: 0.5},
	}
	fitRepo := &fakeFitRepo{}
	cfg := &config.Config{Report: config.ReportConfig{ChartGridPoints: 5}}

	svc := NewRegressionService(reportRepo, fitRepo, cfg, quietLogger())
	require.NoError(t, svc.Refit(context.Background()))

	require.Len(t, fitRepo.saved, 1)
	fit := fitRepo.latest
	assert.NotEmpty(t, fit.FitUUID)
	assert.Equal(t, "deaths_per_thousand", fit.Response)
	assert.Equal(t, "cases_per_thousand", fit.Predictor)
	assert.Equal(t, 3, fit.NObs)
	assert.Greater(t, fit.Slope, 0.0)

	var grid []model.PredictionPoint
	require.NoError(t, json.Unmarshal(fit.GridPoints, &grid))
	require.Len(t, grid, 5)
	assert.InDelta(t, 10.0, grid[0].X, 1e-9)
	assert.InDelta(t, 30.0, grid[4].X, 1e-9)

	var obs []model.PredictionPoint
	require.NoError(t, json.Unmarshal(fit.ObservedPoints, &obs))
	require.Len(t, obs, 3)
	assert.Equal(t, "Alabama", obs[0].ProvinceState)
	require.NotNil(t, obs[0].Actual)
	assert.InDelta(t, 0.2, *obs[0].Actual, 1e-9)
}

func TestRefitDegenerate(t *testing.T) {
	reportRepo := newFakeReportRepo()
	reportRepo.summaries = []*model.StateSummary{
		{ProvinceState: "Alabama", CasesPerThousand: 10, DeathsPerThousand: 0.2},
	}
	fitRepo := &fakeFitRepo{}
	cfg := &config.Config{Report: config.ReportConfig{ChartGridPoints: 5}}

	svc := NewRegressionService(reportRepo, fitRepo, cfg, quietLogger())
	err := svc.Refit(context.Background())
	require.ErrorIs(t, err, ErrDegenerateFit)
	assert.Empty(t, fitRepo.saved)
}
