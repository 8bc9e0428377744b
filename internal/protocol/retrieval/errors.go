package retrieval

import (
	"errors"
	"fmt"
)

var (
	// ErrBadGreeting 对端不是邮箱访问协议服务端
	ErrBadGreeting = errors.New("retrieval: unexpected greeting")

	// ErrRejected 对端以 error 回复
	ErrRejected = errors.New("retrieval: rejected by remote")

	// ErrMalformedReply 应答格式不符
	ErrMalformedReply = errors.New("retrieval: malformed reply")
)

// RejectedError 对端拒绝了某条命令
type RejectedError struct {
	Command string
	Reason  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("retrieval: %s rejected: %s", e.Command, e.Reason)
}

// Is 匹配 ErrRejected
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
