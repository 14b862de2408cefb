package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestEnv 内存sqlite+共享缓存+测试模式gin引擎
func newTestEnv(t *testing.T) (*gorm.DB, *cache.Cache, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Source{},
		&model.SyncRun{},
		&model.GlobalDay{},
		&model.USCountyDay{},
		&model.USStateDay{},
		&model.USNationalDay{},
		&model.CountryDay{},
		&model.StateSummary{},
		&model.RegressionFit{},
	))

	return db, cache.New(time.Minute, time.Minute), gin.New()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func registerReportRoutes(db *gorm.DB, c *cache.Cache, r *gin.Engine) {
	h := NewReportHandler(db, quietLogger(), c)
	r.GET("/api/states", h.ListStates)
	r.GET("/api/states/:state/timeline", h.GetStateTimeline)
	r.GET("/api/national/timeline", h.GetNationalTimeline)
	r.GET("/api/countries/:country/timeline", h.GetCountryTimeline)
	r.GET("/api/regression", h.GetRegression)
	r.GET("/api/runs", h.ListRuns)
}

func TestListStatesEndpoint(t *testing.T) {
	db, c, r := newTestEnv(t)
	registerReportRoutes(db, c, r)

	require.NoError(t, db.Create([]*model.StateSummary{
		{ProvinceState: "New Jersey", Cases: 30, Deaths: 18, Population: 9000000, CasesPerThousand: 0.003, DeathsPerThousand: 1.8},
		{ProvinceState: "Vermont", Cases: 100, Deaths: 1, Population: 620000, CasesPerThousand: 0.16, DeathsPerThousand: 0.09},
	}).Error)

	w := doGet(r, "/api/states")
	require.Equal(t, http.StatusOK, w.Code)

	var result service.StateListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "New Jersey", result.Items[0].ProvinceState)
	assert.InDelta(t, 1.8, result.Items[0].DeathsPerThousand, 1e-9)

	// 排序与截断参数透传
	w = doGet(r, "/api/states?order_by=cases&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Vermont", result.Items[0].ProvinceState)
}

func TestStateTimelineEndpoint(t *testing.T) {
	db, c, r := newTestEnv(t)
	registerReportRoutes(db, c, r)

	require.NoError(t, db.Create([]*model.USStateDay{
		{ProvinceState: "Washington", Date: time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC), Cases: 10, Deaths: 1, Population: 7600000},
		{ProvinceState: "Washington", Date: time.Date(2020, 1, 23, 0, 0, 0, 0, time.UTC), Cases: 13, Deaths: 2, Population: 7600000},
	}).Error)

	w := doGet(r, "/api/states/Washington/timeline")
	require.Equal(t, http.StatusOK, w.Code)

	var result service.TimelineResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "state", result.Scope)
	assert.Equal(t, "Washington", result.Name)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, "2020-01-22", result.Points[0].Date)
	// 首日无前值，差分为空
	assert.Nil(t, result.Points[0].NewCases)

	// 不存在的州返回404
	w = doGet(r, "/api/states/Atlantis/timeline")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Atlantis")
}

func TestNationalAndCountryTimelineEndpoints(t *testing.T) {
	db, c, r := newTestEnv(t)
	registerReportRoutes(db, c, r)

	// 空库：均为404
	assert.Equal(t, http.StatusNotFound, doGet(r, "/api/national/timeline").Code)
	assert.Equal(t, http.StatusNotFound, doGet(r, "/api/countries/Albania/timeline").Code)

	require.NoError(t, db.Create(&model.USNationalDay{
		Date: time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC), Cases: 35, Deaths: 3, Population: 330000000,
	}).Error)
	require.NoError(t, db.Create(&model.CountryDay{
		CountryRegion: "Albania", Date: time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC), Cases: 5, Deaths: 0, Population: 2877800,
	}).Error)

	// 无数据结果不写缓存，落库后无需失效即可见
	w := doGet(r, "/api/national/timeline")
	require.Equal(t, http.StatusOK, w.Code)
	var result service.TimelineResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "US", result.Name)

	w = doGet(r, "/api/countries/Albania/timeline")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "Albania", result.Name)
	assert.EqualValues(t, 5, result.Points[0].Cases)
}

func TestRegressionEndpoint(t *testing.T) {
	db, c, r := newTestEnv(t)
	registerReportRoutes(db, c, r)

	// 从未拟合过
	w := doGet(r, "/api/regression")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "尚未有拟合结果")

	se := 0.1
	require.NoError(t, db.Create(&model.RegressionFit{
		FitUUID:        "fit-1",
		Response:       "deaths_per_thousand",
		Predictor:      "cases_per_thousand",
		Intercept:      -0.5,
		Slope:          1.5,
		StdErrSlope:    &se,
		RSquared:       0.96,
		NObs:           50,
		GridPoints:     datatypes.JSON(`[{"x":1,"predicted":1}]`),
		ObservedPoints: datatypes.JSON(`[{"province_state":"Washington","x":1,"predicted":1,"actual":0.9}]`),
	}).Error)

	w = doGet(r, "/api/regression")
	require.Equal(t, http.StatusOK, w.Code)

	var result service.RegressionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "fit-1", result.FitUUID)
	assert.InDelta(t, 1.5, result.Slope, 1e-9)
	assert.Equal(t, 50, result.NObs)
	require.Len(t, result.ObservedPoints, 1)
	assert.Equal(t, "Washington", result.ObservedPoints[0].ProvinceState)
}

func TestListRunsEndpoint(t *testing.T) {
	db, c, r := newTestEnv(t)
	registerReportRoutes(db, c, r)

	finished := time.Date(2020, 6, 1, 12, 5, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.SyncRun{
		RunUUID:    "run-1",
		SourceID:   1,
		Dataset:    "global",
		Status:     "completed",
		RowCounts:  datatypes.JSON(`{"global_days":3}`),
		StartedAt:  time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
	}).Error)

	w := doGet(r, "/api/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int               `json:"count"`
		Items []service.RunItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "run-1", body.Items[0].RunUUID)
	assert.Equal(t, "completed", body.Items[0].Status)
	require.NotNil(t, body.Items[0].FinishedAt)
	assert.Equal(t, finished.UnixMilli(), *body.Items[0].FinishedAt)
}
