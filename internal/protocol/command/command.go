// Package command 提供行协议的命令表
//
// 每条命令登记允许的会话状态、参数个数与处理函数。分派时先校验状态，
// 再校验参数，最后调用处理函数。处理函数返回 *Reject 时会话回复
// "error <reason>" 并继续；返回其他错误时会话终止。
package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Reject 可回复给对端的协议错误，连接保持打开
type Reject struct {
	Reason string
}

func (e *Reject) Error() string {
	return e.Reason
}

// Rejectf 构造协议错误
func Rejectf(format string, args ...any) *Reject {
	return &Reject{Reason: fmt.Sprintf(format, args...)}
}

// IsReject 判断错误是否应回复给对端
func IsReject(err error) (*Reject, bool) {
	var r *Reject
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

var (
	errUnknown = &Reject{Reason: "unknown command"}
	errSyntax  = &Reject{Reason: "invalid syntax"}
	errState   = &Reject{Reason: "command not allowed in this state"}
)

// Command 一条命令的约束与处理函数
type Command[S comparable, T any] struct {
	// States 允许执行的会话状态
	States []S

	// Arity 允许的参数个数，参数以空白分隔
	Arity []int

	// Text 参数为命令名之后的整行文本，不做拆分
	Text bool

	// Denied 状态不允许时的回复原因，空则使用通用原因
	Denied string

	Handle func(sess T, args []string) error
}

// Table 命令名到命令的映射
type Table[S comparable, T any] map[string]Command[S, T]

// Dispatch 解析一行并执行对应命令
func (t Table[S, T]) Dispatch(sess T, state S, line string) error {
	name, rest, _ := strings.Cut(line, " ")
	cmd, ok := t[strings.ToLower(name)]
	if !ok {
		return errUnknown
	}
	if !slices.Contains(cmd.States, state) {
		if cmd.Denied != "" {
			return &Reject{Reason: cmd.Denied}
		}
		return errState
	}

	var args []string
	if cmd.Text {
		args = []string{rest}
	} else {
		args = strings.Fields(rest)
		if !slices.Contains(cmd.Arity, len(args)) {
			return errSyntax
		}
	}
	return cmd.Handle(sess, args)
}
