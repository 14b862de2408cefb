package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerateFit 自变量不足2个不同取值时无法确定斜率
var ErrDegenerateFit = errors.New("回归退化：自变量不足2个不同取值")

// 拟合的因变量与自变量列名（随拟合结果落库，读取侧不用猜口径）
const (
	fitResponse  = "deaths_per_thousand"
	fitPredictor = "cases_per_thousand"
)

// FitResult 普通最小二乘一元回归的纯计算输出（未落库）
// 标准误与p值在自由度不足（n<3）时无定义，保持为nil
type FitResult struct {
	Intercept       float64
	Slope           float64
	StdErrIntercept *float64
	StdErrSlope     *float64
	PValueIntercept *float64
	PValueSlope     *float64
	RSquared        float64
	N               int
}

// Predict 在给定自变量处求预测值
func (r *FitResult) Predict(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// RegressionService 州级汇总上的线性回归：deaths_per_thousand ~ cases_per_thousand
type RegressionService struct {
	reportRepo repository.ReportRepository
	fitRepo    repository.FitRepository
	cfg        *config.Config
	logger     *logrus.Logger
}

func NewRegressionService(reportRepo repository.ReportRepository, fitRepo repository.FitRepository, cfg *config.Config, logger *logrus.Logger) *RegressionService {
	return &RegressionService{
		reportRepo: reportRepo,
		fitRepo:    fitRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Refit 读取州级汇总，重拟合并落库（us数据集同步完成后调用）
func (s *RegressionService) Refit(ctx context.Context) error {
	summaries, err := s.reportRepo.ListStateSummaries(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("拉取州级汇总失败: %w", err)
	}

	xs := make([]float64, 0, len(summaries))
	ys := make([]float64, 0, len(summaries))
	for _, sum := range summaries {
		xs = append(xs, sum.CasesPerThousand)
		ys = append(ys, sum.DeathsPerThousand)
	}

	res, err := FitOLS(xs, ys)
	if err != nil {
		return err
	}

	// 预测点：等距网格一份（画拟合线），原始观测一份（画残差）
	gridPoints := s.cfg.Report.ChartGridPoints
	gridPts := predictGrid(res, xs, gridPoints)
	obsPts := make([]model.PredictionPoint, 0, len(summaries))
	for _, sum := range summaries {
		actual := sum.DeathsPerThousand
		obsPts = append(obsPts, model.PredictionPoint{
			ProvinceState: sum.ProvinceState,
			X:             sum.CasesPerThousand,
			Predicted:     res.Predict(sum.CasesPerThousand),
			Actual:        &actual,
		})
	}

	gridJSON, err := json.Marshal(gridPts)
	if err != nil {
		return fmt.Errorf("序列化网格预测点失败: %w", err)
	}
	obsJSON, err := json.Marshal(obsPts)
	if err != nil {
		return fmt.Errorf("序列化观测预测点失败: %w", err)
	}

	fit := &model.RegressionFit{
		FitUUID:        uuid.NewString(),
		Response:       fitResponse,
		Predictor:      fitPredictor,
		Intercept:      res.Intercept,
		Slope:          res.Slope,
		StdErrIntcpt:   res.StdErrIntercept,
		StdErrSlope:    res.StdErrSlope,
		PValueIntcpt:   res.PValueIntercept,
		PValueSlope:    res.PValueSlope,
		RSquared:       res.RSquared,
		NObs:           res.N,
		GridPoints:     gridJSON,
		ObservedPoints: obsJSON,
	}
	if err := s.fitRepo.CreateFit(ctx, fit); err != nil {
		return fmt.Errorf("保存拟合结果失败: %w", err)
	}

	s.logger.Infof("回归重拟合完成：slope=%.6f intercept=%.6f R2=%.4f 观测%d个",
		res.Slope, res.Intercept, res.RSquared, res.N)
	return nil
}

// FitOLS 普通最小二乘：y = intercept + slope*x
// 斜率估计基于gonum，标准误与p值按经典公式补齐（t分布，自由度n-2）
func FitOLS(xs, ys []float64) (*FitResult, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("自变量与因变量长度不一致: %d vs %d", len(xs), len(ys))
	}
	n := len(xs)
	if countDistinct(xs) < 2 {
		return nil, ErrDegenerateFit
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	meanX := stat.Mean(xs, nil)
	meanY := stat.Mean(ys, nil)
	var rss, tss, sxx float64
	for i := range xs {
		resid := ys[i] - (alpha + beta*xs[i])
		rss += resid * resid
		dy := ys[i] - meanY
		tss += dy * dy
		dx := xs[i] - meanX
		sxx += dx * dx
	}

	r2 := 1.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}

	res := &FitResult{
		Intercept: alpha,
		Slope:     beta,
		RSquared:  r2,
		N:         n,
	}

	// 推断统计需要正的残差自由度
	if n >= 3 {
		sigma2 := rss / float64(n-2)
		seSlope := math.Sqrt(sigma2 / sxx)
		seIntcpt := math.Sqrt(sigma2 * (1/float64(n) + meanX*meanX/sxx))
		res.StdErrSlope = &seSlope
		res.StdErrIntercept = &seIntcpt

		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
		if p := twoSidedP(tDist, beta, seSlope); p != nil {
			res.PValueSlope = p
		}
		if p := twoSidedP(tDist, alpha, seIntcpt); p != nil {
			res.PValueIntercept = p
		}
	}

	return res, nil
}

// predictGrid 在[min(x), max(x)]上等距取points个点求预测值
func predictGrid(res *FitResult, xs []float64, points int) []model.PredictionPoint {
	if points < 2 {
		points = 50
	}
	minX, maxX := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
	}

	step := (maxX - minX) / float64(points-1)
	out := make([]model.PredictionPoint, 0, points)
	for i := 0; i < points; i++ {
		x := minX + float64(i)*step
		out = append(out, model.PredictionPoint{X: x, Predicted: res.Predict(x)})
	}
	return out
}

// 工具函数：双侧p值（残差为0时t统计量无定义，返回nil）
func twoSidedP(dist distuv.StudentsT, coef, se float64) *float64 {
	if se <= 0 {
		return nil
	}
	t := math.Abs(coef / se)
	p := 2 * dist.Survival(t)
	return &p
}

// 工具函数：统计不同取值个数（精确相等比较）
func countDistinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
