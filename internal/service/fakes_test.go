package service

import (
	"context"
	"io"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"github.com/sirupsen/logrus"
)

// 测试用仓储替身（纯内存，带调用计数验证缓存命中）

type fakeReportRepo struct {
	summaries    []*model.StateSummary
	stateDays    []*model.USStateDay
	nationalDays []*model.USNationalDay
	countryDays  []*model.CountryDay
	runs         []*model.SyncRun
	calls        map[string]int
	err          error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{calls: make(map[string]int)}
}

func (f *fakeReportRepo) ListStateSummaries(ctx context.Context, orderBy string, limit int) ([]*model.StateSummary, error) {
	f.calls["summaries"]++
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.summaries) {
		return f.summaries[:limit], nil
	}
	return f.summaries, nil
}

func (f *fakeReportRepo) ListStateDays(ctx context.Context, state string) ([]*model.USStateDay, error) {
	f.calls["state_days"]++
	if f.err != nil {
		return nil, f.err
	}
	if state == "" {
		return f.stateDays, nil
	}
	var out []*model.USStateDay
	for _, r := range f.stateDays {
		if r.ProvinceState == state {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListNationalDays(ctx context.Context) ([]*model.USNationalDay, error) {
	f.calls["national_days"]++
	if f.err != nil {
		return nil, f.err
	}
	return f.nationalDays, nil
}

func (f *fakeReportRepo) ListCountryDays(ctx context.Context, country string) ([]*model.CountryDay, error) {
	f.calls["country_days"]++
	if f.err != nil {
		return nil, f.err
	}
	if country == "" {
		return f.countryDays, nil
	}
	var out []*model.CountryDay
	for _, r := range f.countryDays {
		if r.CountryRegion == country {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListSyncRuns(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	f.calls["runs"]++
	if f.err != nil {
		return nil, f.err
	}
	return f.runs, nil
}

type fakeFitRepo struct {
	latest *model.RegressionFit
	saved  []*model.RegressionFit
}

func (f *fakeFitRepo) CreateFit(ctx context.Context, fit *model.RegressionFit) error {
	f.saved = append(f.saved, fit)
	f.latest = fit
	return nil
}

func (f *fakeFitRepo) GetLatestFit(ctx context.Context) (*model.RegressionFit, error) {
	return f.latest, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
