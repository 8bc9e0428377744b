// Package logger 提供 mailmesh 的分子系统日志
//
// 基于标准库 log/slog。每个包声明自己的子系统 Logger：
//
//	var log = logger.Logger("dispatch")
//
//	log.Info("消息已投递", "domain", domain, "addr", addr)
//
// 环境变量:
//
//	# dispatch 子系统 debug，其他 info
//	MAILMESH_LOG_LEVEL=dispatch=debug,info
//
//	# JSON 输出
//	MAILMESH_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 子系统 -> *slog.Logger
	loggers sync.Map

	// levels 子系统 -> *slog.LevelVar，用于运行时调整
	levels sync.Map

	output = &switchWriter{}
)

// Logger 返回指定子系统的 Logger，同名子系统共享同一实例
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	settings := SettingsFromEnv()
	lv := new(slog.LevelVar)
	lv.Set(settings.levelFor(subsystem))

	l := slog.New(newHandler(subsystem, lv, settings))
	actual, loaded := loggers.LoadOrStore(subsystem, l)
	if !loaded {
		levels.Store(subsystem, lv)
	}
	return actual.(*slog.Logger)
}

// SetLevel 运行时调整子系统日志级别
func SetLevel(subsystem string, level slog.Level) {
	Logger(subsystem)
	if lv, ok := levels.Load(subsystem); ok {
		lv.(*slog.LevelVar).Set(level)
	}
}

// SetAllLevels 调整所有已创建子系统的日志级别
func SetAllLevels(level slog.Level) {
	levels.Range(func(_, v any) bool {
		v.(*slog.LevelVar).Set(level)
		return true
	})
}

// SetOutput 切换全部 Logger 的输出目标，已创建的 Logger 同样生效
func SetOutput(w io.Writer) {
	output.set(w)
}

// Discard 返回丢弃所有记录的 Logger（测试用）
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}
