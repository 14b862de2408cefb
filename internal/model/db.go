package model

import (
	"time"

	"gorm.io/datatypes"
)

type Source struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name         string     `gorm:"column:name;type:varchar(32);uniqueIndex;not null;comment:数据源名称"`
	BaseURL      string     `gorm:"column:base_url;type:varchar(256);comment:数据源根地址"`
	IsEnabled    bool       `gorm:"column:is_enabled;type:boolean;default:true;comment:是否启用"`
	LastSyncedAt *time.Time `gorm:"column:last_synced_at;type:timestamp;comment:最近一次成功同步时间"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

type SyncRun struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	RunUUID    string         `gorm:"column:run_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一运行ID"`
	SourceID   uint64         `gorm:"column:source_id;type:bigint;not null;comment:关联数据源ID"`
	Dataset    string         `gorm:"column:dataset;type:varchar(16);not null;comment:数据集：global/us"`
	Status     string         `gorm:"column:status;type:varchar(16);default:running;comment:状态：running/completed/failed"`
	RowCounts  datatypes.JSON `gorm:"column:row_counts;type:jsonb;comment:各阶段产出行数"`
	ErrMessage *string        `gorm:"column:err_message;type:text;comment:失败原因"`
	StartedAt  time.Time      `gorm:"column:started_at;type:timestamp;comment:开始时间"`
	FinishedAt *time.Time     `gorm:"column:finished_at;type:timestamp;comment:结束时间"`
}

type GlobalDay struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	ProvinceState string    `gorm:"column:province_state;type:varchar(128);uniqueIndex:uq_global_region_date;comment:省/州（可为空字符串）"`
	CountryRegion string    `gorm:"column:country_region;type:varchar(128);uniqueIndex:uq_global_region_date;not null;comment:国家/地区"`
	CombinedKey   *string   `gorm:"column:combined_key;type:varchar(256);comment:查找表提供的组合键"`
	Date          time.Time `gorm:"column:date;type:date;uniqueIndex:uq_global_region_date;not null;comment:观测日期"`
	Cases         int64     `gorm:"column:cases;type:bigint;not null;comment:累计确诊数（join后仅保留>0）"`
	Deaths        *int64    `gorm:"column:deaths;type:bigint;comment:累计死亡数（死亡表缺失该行时为空）"`
	Population    *int64    `gorm:"column:population;type:bigint;comment:地区人口（查找表未命中时为空）"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

type USCountyDay struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Admin2        string    `gorm:"column:admin2;type:varchar(128);comment:县名（可为空字符串）"`
	ProvinceState string    `gorm:"column:province_state;type:varchar(128);not null;comment:州名"`
	CountryRegion string    `gorm:"column:country_region;type:varchar(128);not null;comment:国家（恒为US）"`
	CombinedKey   string    `gorm:"column:combined_key;type:varchar(256);uniqueIndex:uq_county_key_date;not null;comment:县级组合键"`
	Date          time.Time `gorm:"column:date;type:date;uniqueIndex:uq_county_key_date;not null;comment:观测日期"`
	Cases         *int64    `gorm:"column:cases;type:bigint;comment:累计确诊数（确诊表缺失该行时为空）"`
	Deaths        *int64    `gorm:"column:deaths;type:bigint;comment:累计死亡数（死亡表缺失该行时为空）"`
	Population    *int64    `gorm:"column:population;type:bigint;comment:县人口（取自死亡表Population列）"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

func (Source) TableName() string      { return "sources" }
func (SyncRun) TableName() string     { return "sync_runs" }
func (GlobalDay) TableName() string   { return "global_days" }
func (USCountyDay) TableName() string { return "us_county_days" }
