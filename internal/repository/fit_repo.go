package repository

import (
	"context"
	"errors"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"gorm.io/gorm"
)

// FitRepository 回归拟合结果持久化（追加写入，读取取最新一条）
type FitRepository interface {
	CreateFit(ctx context.Context, fit *model.RegressionFit) error
	GetLatestFit(ctx context.Context) (*model.RegressionFit, error)
}

type fitRepository struct {
	db *gorm.DB
}

// NewFitRepository 创建拟合结果仓储
func NewFitRepository(db *gorm.DB) FitRepository {
	return &fitRepository{db: db}
}

func (r *fitRepository) CreateFit(ctx context.Context, fit *model.RegressionFit) error {
	return r.db.WithContext(ctx).Create(fit).Error
}

// GetLatestFit 取最近一次拟合；从未拟合过返回 (nil, nil)
func (r *fitRepository) GetLatestFit(ctx context.Context) (*model.RegressionFit, error) {
	var fit model.RegressionFit
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").First(&fit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fit, nil
}
