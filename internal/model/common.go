package model

// Dataset 数据集枚举（global=全球国家级时间序列，us=美国县级时间序列）
type Dataset string

const (
	DatasetGlobal Dataset = "global"
	DatasetUS     Dataset = "us"
)

// Valid 校验数据集名是否合法
func (d Dataset) Valid() bool {
	return d == DatasetGlobal || d == DatasetUS
}

// TableKind 上游CSV文件角色枚举
type TableKind string

const (
	TableCases  TableKind = "cases"  // 累计确诊宽表
	TableDeaths TableKind = "deaths" // 累计死亡宽表
	TableLookup TableKind = "lookup" // 地区->人口查找表
)

// RawTable 所有数据源的原始宽表通用结构
// Header 保留上游CSV的原始列名顺序，Records 为数据行（与Header等长）
type RawTable struct {
	Source  string     // 数据源名称（jhu）
	Kind    TableKind  // 文件角色（cases/deaths/lookup）
	File    string     // 上游文件相对路径（用于错误定位）
	Header  []string   // 原始表头
	Records [][]string // 数据行
}
