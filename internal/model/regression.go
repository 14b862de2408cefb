package model

import (
	"time"

	"gorm.io/datatypes"
)

// RegressionFit 线性回归拟合结果（每次重拟合追加一条，读取时取最新）
// 模型：deaths_per_thousand = intercept + slope * cases_per_thousand
type RegressionFit struct {
	ID             uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	FitUUID        string         `gorm:"column:fit_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一拟合ID"`
	Response       string         `gorm:"column:response;type:varchar(64);not null;comment:因变量名"`
	Predictor      string         `gorm:"column:predictor;type:varchar(64);not null;comment:自变量名"`
	Intercept      float64        `gorm:"column:intercept;type:numeric(18,8);not null;comment:截距"`
	Slope          float64        `gorm:"column:slope;type:numeric(18,8);not null;comment:斜率"`
	StdErrIntcpt   *float64       `gorm:"column:std_err_intcpt;type:numeric(18,8);comment:截距标准误（样本不足时为空）"`
	StdErrSlope    *float64       `gorm:"column:std_err_slope;type:numeric(18,8);comment:斜率标准误（样本不足时为空）"`
	PValueIntcpt   *float64       `gorm:"column:p_value_intcpt;type:numeric(18,8);comment:截距p值"`
	PValueSlope    *float64       `gorm:"column:p_value_slope;type:numeric(18,8);comment:斜率p值"`
	RSquared       float64        `gorm:"column:r_squared;type:numeric(18,8);not null;comment:决定系数"`
	NObs           int            `gorm:"column:n_obs;type:int;not null;comment:观测数"`
	GridPoints     datatypes.JSON `gorm:"column:grid_points;type:jsonb;not null;comment:等距网格上的预测点"`
	ObservedPoints datatypes.JSON `gorm:"column:observed_points;type:jsonb;not null;comment:原始观测上的预测点"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamp;comment:创建时间"`
}

func (RegressionFit) TableName() string { return "regression_fits" }

// PredictionPoint 回归预测点（grid_points/observed_points 的JSON元素）
type PredictionPoint struct {
	ProvinceState string   `json:"province_state,omitempty"` // 仅原始观测点携带
	X             float64  `json:"x"`
	Predicted     float64  `json:"predicted"`
	Actual        *float64 `json:"actual,omitempty"` // 仅原始观测点携带
}
