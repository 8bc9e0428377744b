package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 环境变量
const (
	EnvLevel  = "MAILMESH_LOG_LEVEL"
	EnvFormat = "MAILMESH_LOG_FORMAT"
	EnvSource = "MAILMESH_LOG_SOURCE"
)

// Format 输出格式
type Format int

const (
	// FormatText key=value 文本
	FormatText Format = iota
	// FormatJSON 每行一个 JSON 对象
	FormatJSON
)

// Settings 日志设置
type Settings struct {
	// Default 未单独配置的子系统使用的级别
	Default slog.Level

	// Subsystems 单独配置的子系统级别
	Subsystems map[string]slog.Level

	Format    Format
	AddSource bool
}

func (s *Settings) levelFor(subsystem string) slog.Level {
	if lv, ok := s.Subsystems[subsystem]; ok {
		return lv
	}
	return s.Default
}

var (
	settings     *Settings
	settingsOnce sync.Once
)

// SettingsFromEnv 解析环境变量，结果在进程内缓存
func SettingsFromEnv() *Settings {
	settingsOnce.Do(func() {
		settings = ParseSettings(os.Getenv(EnvLevel), os.Getenv(EnvFormat), os.Getenv(EnvSource))
	})
	return settings
}

// ParseSettings 解析级别规格、格式与源码位置开关
//
// 级别规格形如 "dispatch=debug,directory=warn,info"，
// 不带子系统的一项作为默认级别；无法识别的项被忽略。
func ParseSettings(levelSpec, format, source string) *Settings {
	s := &Settings{
		Default:    slog.LevelInfo,
		Subsystems: make(map[string]slog.Level),
	}

	for _, item := range strings.Split(levelSpec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, lvl, scoped := strings.Cut(item, "=")
		if !scoped {
			if lv, ok := parseLevel(name); ok {
				s.Default = lv
			}
			continue
		}
		if lv, ok := parseLevel(lvl); ok {
			s.Subsystems[strings.TrimSpace(name)] = lv
		}
	}

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		s.Format = FormatJSON
	}
	s.AddSource = source == "1" || strings.EqualFold(source, "true")
	return s
}

func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
