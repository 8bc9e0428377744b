package securechannel

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshake 握手失败，所有握手错误都包装此错误
	ErrHandshake = errors.New("securechannel: handshake failed")

	// ErrMalformed 握手消息格式错误
	ErrMalformed = fmt.Errorf("%w: malformed message", ErrHandshake)

	// ErrChallengeMismatch 服务端回显的挑战与发送的不一致
	ErrChallengeMismatch = fmt.Errorf("%w: challenge mismatch", ErrHandshake)

	// ErrRejected 服务端拒绝 startsecure
	ErrRejected = fmt.Errorf("%w: rejected by server", ErrHandshake)

	// ErrNotConfirmed 握手确认消息不是 ok
	ErrNotConfirmed = fmt.Errorf("%w: confirmation mismatch", ErrHandshake)

	// ErrBadCiphertext 加密行不是合法 base64
	ErrBadCiphertext = errors.New("securechannel: bad ciphertext")
)
