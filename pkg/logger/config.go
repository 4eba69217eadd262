package logger

import "fmt"

// Format 输出格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// Config 日志配置
type Config struct {
	// Level 日志级别: debug / info / warn / error
	Level string `mapstructure:"level" json:"level" yaml:"level"`
	// Format 输出格式: json / console
	Format Format `mapstructure:"format" json:"format" yaml:"format"`
	// EnableConsole 是否输出到控制台
	EnableConsole bool `mapstructure:"enable_console" json:"enable_console" yaml:"enable_console"`
	// EnableFile 是否输出到文件（启用轮转）
	EnableFile bool `mapstructure:"enable_file" json:"enable_file" yaml:"enable_file"`
	// OutputPath 文件输出路径
	OutputPath string `mapstructure:"output_path" json:"output_path" yaml:"output_path"`
	// Rotation 轮转配置
	Rotation RotationConfig `mapstructure:"rotation" json:"rotation" yaml:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	Compress   bool `mapstructure:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Level:         "info",
		Format:        JSONFormat,
		EnableConsole: true,
		EnableFile:    false,
		OutputPath:    "logs/xgacha.log",
		Rotation: RotationConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Level)
	}

	switch c.Format {
	case JSONFormat, ConsoleFormat, "":
	default:
		return fmt.Errorf("invalid log format: %q", c.Format)
	}

	if c.EnableFile && c.OutputPath == "" {
		return fmt.Errorf("output_path is required when enable_file is set")
	}

	return nil
}
