package directory

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRegistered 同一区域内的标签已登记
	ErrAlreadyRegistered = errors.New("directory: already registered")

	// ErrInvalidDomain 域名非法或中间区域不存在
	ErrInvalidDomain = errors.New("directory: invalid domain")

	// ErrNotFound 名字未登记
	ErrNotFound = errors.New("directory: not found")

	// ErrNotAddressable 区域没有 RPC 地址，无法跨进程传递
	ErrNotAddressable = errors.New("directory: zone has no address")

	// ErrRemote 远端返回了无法归类的错误
	ErrRemote = errors.New("directory: remote error")

	// ErrClosed 连接池已关闭
	ErrClosed = errors.New("directory: closed")
)

// AlreadyRegisteredError 标签已在区域中登记
type AlreadyRegisteredError struct {
	Zone  string
	Label string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("directory: %q already registered in zone %s", e.Label, zoneName(e.Zone))
}

// Is 匹配 ErrAlreadyRegistered
func (e *AlreadyRegisteredError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// InvalidDomainError 域名非法，或委派路径上的区域 Missing 不存在
type InvalidDomainError struct {
	Domain  string
	Missing string
}

func (e *InvalidDomainError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("directory: invalid domain %q: zone %q not registered", e.Domain, e.Missing)
	}
	return fmt.Sprintf("directory: invalid domain %q", e.Domain)
}

// Is 匹配 ErrInvalidDomain
func (e *InvalidDomainError) Is(target error) bool {
	return target == ErrInvalidDomain
}

// NotFoundError 名字未登记
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("directory: %q not found", e.Name)
}

// Is 匹配 ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func zoneName(z string) string {
	if z == "" {
		return "<root>"
	}
	return z
}
