package jhu

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/adapter"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/interfaces"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/model"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// SourceName 注册表与sources表中的数据源名
const SourceName = "jhu"

func init() {
	adapter.Register(SourceName, NewJHUAdapter)
}

// tableEntry 单个数据集需要下载的文件角色清单项
type tableEntry struct {
	fileKey string          // config.SourceConfig.Files 中的键
	kind    model.TableKind // 文件角色
}

var datasetTables = map[model.Dataset][]tableEntry{
	model.DatasetGlobal: {
		{fileKey: "global_cases", kind: model.TableCases},
		{fileKey: "global_deaths", kind: model.TableDeaths},
		{fileKey: "lookup", kind: model.TableLookup},
	},
	model.DatasetUS: {
		{fileKey: "us_cases", kind: model.TableCases},
		{fileKey: "us_deaths", kind: model.TableDeaths},
	},
}

type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewJHUAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

// GetName ========== 实现SourceAdapter接口 ==========
func (j *Adapter) GetName() string {
	return SourceName
}

// FetchTables 按数据集下载对应的原始CSV宽表（global三个文件，us两个文件）
// 串行下载，任一文件失败即整体失败，不做部分成功
func (j *Adapter) FetchTables(ctx context.Context, dataset model.Dataset) ([]*model.RawTable, error) {
	entries, ok := datasetTables[dataset]
	if !ok {
		return nil, fmt.Errorf("不支持的数据集: %s", dataset)
	}

	var tables []*model.RawTable
	for _, entry := range entries {
		rel, ok := j.cfg.Files[entry.fileKey]
		if !ok || rel == "" {
			return nil, fmt.Errorf("数据源未配置文件路径: %s", entry.fileKey)
		}

		table, err := j.fetchCSV(ctx, rel, entry.kind)
		if err != nil {
			return nil, fmt.Errorf("下载%s失败: %w", rel, err)
		}
		tables = append(tables, table)
		j.logger.Infof("成功下载%s共%d行", rel, len(table.Records))
	}

	return tables, nil
}

// ConvertToDBModel 融化宽表并按地区+日期连接确诊/死亡，产出数据库模型
// global返回第一个切片，us返回第二个切片，另一个恒为nil
func (j *Adapter) ConvertToDBModel(tables []*model.RawTable, dataset model.Dataset) ([]*model.GlobalDay, []*model.USCountyDay, error) {
	// 1. 按角色取出各文件（缺失则报错）
	byKind := make(map[model.TableKind]*model.RawTable, len(tables))
	for _, t := range tables {
		byKind[t.Kind] = t
	}
	casesTable, ok := byKind[model.TableCases]
	if !ok {
		return nil, nil, fmt.Errorf("缺少确诊宽表")
	}
	deathsTable, ok := byKind[model.TableDeaths]
	if !ok {
		return nil, nil, fmt.Errorf("缺少死亡宽表")
	}

	switch dataset {
	case model.DatasetGlobal:
		// 2. 宽表融化为长表
		casesPts, err := j.meltTable(casesTable, false)
		if err != nil {
			return nil, nil, err
		}
		deathsPts, err := j.meltTable(deathsTable, false)
		if err != nil {
			return nil, nil, err
		}

		// 3. 解析查找表（global需要补充组合键与人口）
		lookupTable, ok := byKind[model.TableLookup]
		if !ok {
			return nil, nil, fmt.Errorf("缺少地区查找表")
		}
		entries, err := j.parseLookup(lookupTable)
		if err != nil {
			return nil, nil, err
		}

		// 4. 全外连接 + 过滤 + 人口左连接
		rows := j.joinGlobalDays(casesPts, deathsPts, entries)
		return rows, nil, nil

	case model.DatasetUS:
		casesPts, err := j.meltTable(casesTable, true)
		if err != nil {
			return nil, nil, err
		}
		deathsPts, err := j.meltTable(deathsTable, true)
		if err != nil {
			return nil, nil, err
		}
		rows := j.joinUSCountyDays(casesPts, deathsPts)
		return nil, rows, nil

	default:
		return nil, nil, fmt.Errorf("不支持的数据集: %s", dataset)
	}
}

// fetchCSV 下载单个CSV文件并整文件读入（上游文件最大约十几MB，直接读全量）
func (j *Adapter) fetchCSV(ctx context.Context, rel string, kind model.TableKind) (*model.RawTable, error) {
	fileURL := fmt.Sprintf("%s/%s", strings.TrimRight(j.cfg.BaseURL, "/"), rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求上游失败: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			j.logger.Errorf("关闭响应体失败: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("上游返回状态%d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{File: rel, Reason: fmt.Sprintf("CSV读取失败: %v", err)}
	}
	if len(records) < 2 {
		return nil, &ParseError{File: rel, Reason: "文件为空或仅有表头"}
	}

	return &model.RawTable{
		Source:  SourceName,
		Kind:    kind,
		File:    rel,
		Header:  records[0],
		Records: records[1:],
	}, nil
}
