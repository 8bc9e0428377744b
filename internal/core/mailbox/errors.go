package mailbox

import "errors"

var (
	// ErrUnknownUser 用户没有邮箱
	ErrUnknownUser = errors.New("mailbox: unknown user")

	// ErrNotFound 序号不存在或已删除
	ErrNotFound = errors.New("mailbox: message not found")

	// ErrForeignDomain 收件人不属于本节点的域
	ErrForeignDomain = errors.New("mailbox: no recipient in local domain")
)
