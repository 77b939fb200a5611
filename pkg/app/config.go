package app

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
)

const (
	// EnvConfigPath 配置文件路径环境变量
	EnvConfigPath = "MEGATECH_CONFIG"
	// EnvPrefix 环境变量前缀
	EnvPrefix = "MEGATECH"
	// DefaultConfigPath 默认配置文件路径
	DefaultConfigPath = "configs/config.yaml"
)

// LoadConfig 加载服务配置到结构体
// 路径优先级：命令行 --config > 环境变量 MEGATECH_CONFIG > 默认路径；
// 配置项可被 MEGATECH_ 前缀的环境变量覆盖
func LoadConfig(v any) error {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "配置文件路径")
	pflag.Parse()

	explicit := configPath != ""
	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	mgr := config.NewManager(config.WithConfigType("yaml"))

	if _, err := os.Stat(configPath); err == nil {
		if err := mgr.LoadFile(configPath); err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
	} else if explicit {
		// 显式指定的配置文件不存在视为错误
		return fmt.Errorf("config file not found: %s", configPath)
	}

	mgr.BindEnv(EnvPrefix)

	if err := mgr.Unmarshal(v); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}
