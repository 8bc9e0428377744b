package submission

import (
	"errors"
	"fmt"
)

var (
	// ErrBadGreeting 对端不是提交协议服务端
	ErrBadGreeting = errors.New("submission: unexpected greeting")

	// ErrRejected 对端以 error 回复
	ErrRejected = errors.New("submission: rejected by remote")

	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("submission: client closed")
)

// RejectedError 对端拒绝了某条命令
type RejectedError struct {
	Command string
	Reason  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission: %s rejected: %s", e.Command, e.Reason)
}

// Is 匹配 ErrRejected
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
