package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig          `mapstructure:"database"` // 数据库配置
	Report   ReportConfig            `mapstructure:"report"`   // 查询/图表配置
	Sources  map[string]SourceConfig `mapstructure:"sources"`  // 多数据源独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置（postgres 为主，sqlite 用于本地单机跑数）
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // 驱动：postgres/sqlite
	DSN             string        `mapstructure:"dsn"`               // postgres连接DSN
	SQLitePath      string        `mapstructure:"sqlite_path"`       // sqlite数据库文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// ReportConfig 查询与图表配置
type ReportConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`         // 查询结果缓存时长
	ChartGridPoints int           `mapstructure:"chart_grid_points"` // 回归预测网格点数
	TopLimit        int           `mapstructure:"top_limit"`         // 排行图默认地区数
}

// SourceConfig 单个数据源的独立配置
type SourceConfig struct {
	BaseURL string            `mapstructure:"base_url"` // 数据文件根地址
	Timeout int               `mapstructure:"timeout"`  // 请求超时（秒）
	Proxy   string            `mapstructure:"proxy"`    // 代理地址
	Files   map[string]string `mapstructure:"files"`    // 角色->文件相对路径
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if j, ok := cfg.Sources["jhu"]; ok {
		if v := os.Getenv("JHU_BASE_URL"); v != "" {
			j.BaseURL = v
		}
		if v := os.Getenv("JHU_PROXY"); v != "" {
			j.Proxy = v
		}
		cfg.Sources["jhu"] = j
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

// GetGORMConfig 获取数据库配置（适配GORM）
func (m *DatabaseConfig) GetGORMConfig() gorm.Config {
	return gorm.Config{} // 可扩展：添加日志、命名策略等
}
