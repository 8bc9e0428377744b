package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed 队列已关闭
	ErrClosed = errors.New("dispatch: queue closed")

	// ErrQueueFull 在等待时限内队列一直是满的
	ErrQueueFull = errors.New("dispatch: queue full")
)

// 投递失败的阶段
const (
	StageResolve = "resolve"
	StageConnect = "connect"
	StageSend    = "send"
)

// DeliveryError 向某个域投递失败
type DeliveryError struct {
	Domain string
	Stage  string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("dispatch: %s %s: %v", e.Stage, e.Domain, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
