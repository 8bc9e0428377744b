package types

import "errors"

var (
	// ErrInvalidAddress 地址不是 local@domain 形式
	ErrInvalidAddress = errors.New("types: invalid address")

	// ErrNoRecipients 收件人列表为空
	ErrNoRecipients = errors.New("types: no recipients")
)
