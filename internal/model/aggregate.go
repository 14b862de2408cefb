package model

import (
	"time"
)

// USStateDay 州级聚合日表（县级行按州+日期求和后一条）
// new_* 为相邻日期差分，首日无前值时为空
type USStateDay struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ProvinceState    string    `gorm:"column:province_state;type:varchar(128);uniqueIndex:uq_state_date;not null"`
	Date             time.Time `gorm:"column:date;type:date;uniqueIndex:uq_state_date;not null"`
	Cases            int64     `gorm:"column:cases;type:bigint;not null"`
	Deaths           int64     `gorm:"column:deaths;type:bigint;not null"`
	Population       int64     `gorm:"column:population;type:bigint;not null"`
	DeathsPerMillion *float64  `gorm:"column:deaths_per_million;type:numeric(18,6)"` // 人口为0时为空
	NewCases         *int64    `gorm:"column:new_cases;type:bigint"`
	NewDeaths        *int64    `gorm:"column:new_deaths;type:bigint"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (USStateDay) TableName() string { return "us_state_days" }

// USNationalDay 全国聚合日表（州级行按日期求和后一条）
type USNationalDay struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Date             time.Time `gorm:"column:date;type:date;uniqueIndex;not null"`
	Cases            int64     `gorm:"column:cases;type:bigint;not null"`
	Deaths           int64     `gorm:"column:deaths;type:bigint;not null"`
	Population       int64     `gorm:"column:population;type:bigint;not null"`
	DeathsPerMillion *float64  `gorm:"column:deaths_per_million;type:numeric(18,6)"`
	NewCases         *int64    `gorm:"column:new_cases;type:bigint"`
	NewDeaths        *int64    `gorm:"column:new_deaths;type:bigint"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (USNationalDay) TableName() string { return "us_national_days" }

// CountryDay 国家级聚合日表（全球行按国家+日期求和，抹平省级拆分）
type CountryDay struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	CountryRegion    string    `gorm:"column:country_region;type:varchar(128);uniqueIndex:uq_country_date;not null"`
	Date             time.Time `gorm:"column:date;type:date;uniqueIndex:uq_country_date;not null"`
	Cases            int64     `gorm:"column:cases;type:bigint;not null"`
	Deaths           int64     `gorm:"column:deaths;type:bigint;not null"`
	Population       int64     `gorm:"column:population;type:bigint;not null"`
	DeathsPerMillion *float64  `gorm:"column:deaths_per_million;type:numeric(18,6)"`
	NewCases         *int64    `gorm:"column:new_cases;type:bigint"`
	NewDeaths        *int64    `gorm:"column:new_deaths;type:bigint"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (CountryDay) TableName() string { return "country_days" }

// StateSummary 州级汇总表（每州一条，取州级日表的累计峰值）
// 确诊或人口为0的州不入表，避免千人率除零
type StateSummary struct {
	ID                uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ProvinceState     string    `gorm:"column:province_state;type:varchar(128);uniqueIndex;not null"`
	Cases             int64     `gorm:"column:cases;type:bigint;not null"`
	Deaths            int64     `gorm:"column:deaths;type:bigint;not null"`
	Population        int64     `gorm:"column:population;type:bigint;not null"`
	CasesPerThousand  float64   `gorm:"column:cases_per_thousand;type:numeric(18,6);not null"`
	DeathsPerThousand float64   `gorm:"column:deaths_per_thousand;type:numeric(18,6);not null"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (StateSummary) TableName() string { return "state_summaries" }
