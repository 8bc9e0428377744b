package interfaces

import "github.com/dep2p/go-mailmesh/pkg/types"

// MailStore 每用户的只增邮件日志
type MailStore interface {
	// Put 追加一封邮件，返回分配的序号
	Put(user string, msg *types.Message) (int, error)

	// Get 读取指定序号的邮件
	Get(user string, index int) (*types.Message, error)

	// Delete 删除指定序号的邮件，序号不会复用
	Delete(user string, index int) error

	// List 按序号升序列出邮件
	List(user string) ([]types.Entry, error)

	// HasUser 判断是否存在该用户的邮箱
	HasUser(user string) bool
}
