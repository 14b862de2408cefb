package adapter

import (
	"fmt"

	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/config"
	"github.com/adibsob/Analysis-of-Covid-19-Data/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// Factory 数据源适配器工厂函数签名
// 入参：数据源配置、日志实例
// 出参：实现SourceAdapter接口的适配器实例
type Factory func(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter

// ========== 全局工厂函数注册表（各适配器init时注册） ==========
var factoryRegistry = make(map[string]Factory)

// Register 供适配器init函数调用，注册工厂函数
func Register(source string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("数据源%s的工厂函数不能为nil", source))
	}
	if _, exists := factoryRegistry[source]; exists {
		logrus.Warnf("数据源%s的适配器已注册，将覆盖原有实现", source)
	}
	factoryRegistry[source] = factory
}

// GetFactory 获取指定数据源的工厂函数
func GetFactory(source string) (Factory, bool) {
	factory, ok := factoryRegistry[source]
	return factory, ok
}

// ListFactories 列出所有已注册的数据源
func ListFactories() []string {
	var sources []string
	for s := range factoryRegistry {
		sources = append(sources, s)
	}
	return sources
}
