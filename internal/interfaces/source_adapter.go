package interfaces

import (
	"context"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
)

// SourceAdapter 所有数据源必须实现的核心接口
type SourceAdapter interface {
	GetName() string                                                                                                // 数据源名称
	FetchTables(ctx context.Context, dataset model.Dataset) ([]*model.RawTable, error)                              // 下载原始宽表
	ConvertToDBModel(tables []*model.RawTable, dataset model.Dataset) ([]*model.GlobalDay, []*model.USCountyDay, error) // 融化+连接后转换为数据库模型
}

// SeriesRepository 时间序列落库接口
type SeriesRepository interface {
	SaveGlobalDays(ctx context.Context, rows []*model.GlobalDay) error
	SaveUSCountyDays(ctx context.Context, rows []*model.USCountyDay) error
}
