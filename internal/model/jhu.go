package model

import "time"

// SeriesPoint 宽表融化后的长表行（一地区一日期一观测值）
// 全球表只填 ProvinceState/CountryRegion；美国县级表额外携带 Admin2/CombinedKey，
// 美国死亡表再额外携带 Population
type SeriesPoint struct {
	Admin2        string
	ProvinceState string
	CountryRegion string
	CombinedKey   string
	Population    *int64
	Date          time.Time
	Value         int64
}

// LookupEntry 地区查找表行（为全球长表补充组合键与人口）
type LookupEntry struct {
	ProvinceState string
	CountryRegion string
	CombinedKey   string
	Population    *int64
}
