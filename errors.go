package mailmesh

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ────────────────────────────────────────────────────────────────────────
	// 装配错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrMissingKeys 邮箱节点既没有密钥目录也没有注入密钥
	ErrMissingKeys = errors.New("mailbox node requires a key store")

	// ErrMissingUsers 邮箱节点没有用户
	ErrMissingUsers = errors.New("mailbox node requires a user registry")
)
