package jhu

import (
	"io"
	"testing"
	"time"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用适配器（日志丢弃，不连外网）
func newTestAdapter() *Adapter {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Adapter{logger: logger}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// 全球宽表小样本：2个地区 × 3个日期
func globalCasesTable() *model.RawTable {
	return &model.RawTable{
		Source: SourceName,
		Kind:   model.TableCases,
		File:   "confirmed_global.csv",
		Header: []string{"Province/State", "Country/Region", "Lat", "Long", "1/22/20", "1/23/20", "1/24/20"},
		Records: [][]string{
			{"", "Albania", "41.15", "20.17", "0", "1", "2"},
			{"British Columbia", "Canada", "53.73", "-127.65", "5", "6", "7"},
		},
	}
}

func TestMeltTableGlobal(t *testing.T) {
	j := newTestAdapter()

	points, err := j.meltTable(globalCasesTable(), false)
	require.NoError(t, err)
	// 2地区 × 3日期 = 6行观测
	require.Len(t, points, 6)

	// 第一条地区的首个观测
	assert.Equal(t, "", points[0].ProvinceState)
	assert.Equal(t, "Albania", points[0].CountryRegion)
	assert.Equal(t, day(2020, 1, 22), points[0].Date)
	assert.Equal(t, int64(0), points[0].Value)

	// 日期统一为UTC零点，跨行可直接作map键比较
	assert.Equal(t, day(2020, 1, 24), points[2].Date)
	assert.Equal(t, int64(2), points[2].Value)

	// 第二条地区携带省名
	assert.Equal(t, "British Columbia", points[3].ProvinceState)
	assert.Equal(t, "Canada", points[3].CountryRegion)
	assert.Equal(t, int64(5), points[3].Value)
}

func TestMeltTableFourDigitYearHeader(t *testing.T) {
	j := newTestAdapter()
	table := globalCasesTable()
	table.Header = []string{"Province/State", "Country/Region", "Lat", "Long", "1/22/2020", "1/23/2020", "1/24/2020"}

	points, err := j.meltTable(table, false)
	require.NoError(t, err)
	assert.Equal(t, day(2020, 1, 22), points[0].Date)
}

func TestMeltTableUS(t *testing.T) {
	j := newTestAdapter()
	table := &model.RawTable{
		File: "deaths_US.csv",
		Header: []string{
			"UID", "iso2", "iso3", "code3", "FIPS", "Admin2", "Province_State",
			"Country_Region", "Lat", "Long_", "Combined_Key", "Population", "1/22/20", "1/23/20",
		},
		Records: [][]string{
			{"84001001", "US", "USA", "840", "1001.0", "Autauga", "Alabama", "US", "32.53", "-86.64", "Autauga, Alabama, US", "55869", "0", "1"},
		},
	}

	points, err := j.meltTable(table, true)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "Autauga", points[0].Admin2)
	assert.Equal(t, "Alabama", points[0].ProvinceState)
	assert.Equal(t, "Autauga, Alabama, US", points[0].CombinedKey)
	require.NotNil(t, points[0].Population)
	assert.Equal(t, int64(55869), *points[0].Population)
	assert.Equal(t, int64(1), points[1].Value)
}

func TestMeltTableUSWithoutPopulationColumn(t *testing.T) {
	// 美国确诊表没有Population列，人口留空
	j := newTestAdapter()
	table := &model.RawTable{
		File: "confirmed_US.csv",
		Header: []string{
			"UID", "iso2", "iso3", "code3", "FIPS", "Admin2", "Province_State",
			"Country_Region", "Lat", "Long_", "Combined_Key", "1/22/20",
		},
		Records: [][]string{
			{"84001001", "US", "USA", "840", "1001.0", "Autauga", "Alabama", "US", "32.53", "-86.64", "Autauga, Alabama, US", "3"},
		},
	}

	points, err := j.meltTable(table, true)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Nil(t, points[0].Population)
	assert.Equal(t, int64(3), points[0].Value)
}

func TestMeltTableNoDateColumns(t *testing.T) {
	j := newTestAdapter()
	table := &model.RawTable{
		File:    "confirmed_global.csv",
		Header:  []string{"Province/State", "Country/Region", "Lat", "Long"},
		Records: [][]string{{"", "Albania", "41.15", "20.17"}},
	}

	_, err := j.meltTable(table, false)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "未找到日期列")
	assert.Contains(t, pe.Error(), "表头")
}

func TestMeltTableNonDateHeaderInDateZone(t *testing.T) {
	j := newTestAdapter()
	table := &model.RawTable{
		File:    "confirmed_global.csv",
		Header:  []string{"Province/State", "Country/Region", "1/22/20", "oops", "1/24/20"},
		Records: [][]string{{"", "Albania", "0", "1", "2"}},
	}

	_, err := j.meltTable(table, false)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "oops", pe.Column)
}

func TestMeltTableNonNumericCell(t *testing.T) {
	j := newTestAdapter()
	table := globalCasesTable()
	table.Records[1][5] = "n/a"

	_, err := j.meltTable(table, false)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Row)
	assert.Equal(t, "1/23/20", pe.Column)
	assert.Equal(t, "n/a", pe.Value)
}

func TestMeltTableMissingRequiredColumn(t *testing.T) {
	j := newTestAdapter()
	// 用全球表头按美国口径融化，缺少县级标识列
	_, err := j.meltTable(globalCasesTable(), true)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "缺少必需标识列")
}

func TestParseLookup(t *testing.T) {
	j := newTestAdapter()
	table := &model.RawTable{
		File: "lookup.csv",
		Header: []string{
			"UID", "iso2", "iso3", "code3", "FIPS", "Admin2", "Province_State",
			"Country_Region", "Lat", "Long_", "Combined_Key", "Population",
		},
		Records: [][]string{
			{"4", "AF", "AFG", "4", "", "", "", "Afghanistan", "33.94", "67.71", "Afghanistan", "38928341"},
			// 县级行必须被跳过（县级人口走美国死亡表）
			{"84001001", "US", "USA", "840", "1001.0", "Autauga", "Alabama", "US", "32.53", "-86.64", "Autauga, Alabama, US", "55869"},
			// 省级行保留，人口为空按缺失处理
			{"15601", "CA", "CAN", "124", "", "", "Repatriated Travellers", "Canada", "", "", "Repatriated Travellers, Canada", ""},
		},
	}

	entries, err := j.parseLookup(table)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Afghanistan", entries[0].CountryRegion)
	assert.Equal(t, "", entries[0].ProvinceState)
	require.NotNil(t, entries[0].Population)
	assert.Equal(t, int64(38928341), *entries[0].Population)

	assert.Equal(t, "Repatriated Travellers", entries[1].ProvinceState)
	assert.Nil(t, entries[1].Population)
}

func TestParsePopulationCellScientificNotation(t *testing.T) {
	// 个别镜像把人口写成浮点（如 5.5869e4），按浮点解析后取整
	j := newTestAdapter()
	p := j.parsePopulationCell("lookup.csv", 1, "55869.0")
	require.NotNil(t, p)
	assert.Equal(t, int64(55869), *p)

	assert.Nil(t, j.parsePopulationCell("lookup.csv", 2, "not-a-number"))
	assert.Nil(t, j.parsePopulationCell("lookup.csv", 3, ""))
}
