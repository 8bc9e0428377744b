package dispatch

import (
	"context"
	"sync"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

// Queue 有界 FIFO 投递队列
type Queue struct {
	ch    chan *types.Message
	done  chan struct{}
	once  sync.Once
	depth func(int)
}

// NewQueue 创建容量为 capacity 的队列；depth 可选，在长度变化后回调
func NewQueue(capacity int, depth func(int)) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	if depth == nil {
		depth = func(int) {}
	}
	return &Queue{
		ch:    make(chan *types.Message, capacity),
		done:  make(chan struct{}),
		depth: depth,
	}
}

// Enqueue 放入一封邮件，队列满时阻塞直到有空位、ctx 结束或队列关闭
func (q *Queue) Enqueue(ctx context.Context, msg *types.Message) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- msg:
		q.depth(len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}
}

// Dequeue 取出最早放入的邮件，队列空时阻塞直到有邮件、ctx 结束或队列关闭
func (q *Queue) Dequeue(ctx context.Context) (*types.Message, error) {
	select {
	case <-q.done:
		return nil, ErrClosed
	default:
	}
	select {
	case msg := <-q.ch:
		q.depth(len(q.ch))
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrClosed
	}
}

// Len 当前长度
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap 容量
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Close 唤醒所有等待者；队列中剩余的邮件被丢弃
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}
