package types

import (
	"fmt"
	"strings"
)

// SplitAddress 将 local@domain 拆分为本地部分与域名
//
// 以最后一个 '@' 为界，两侧都不能为空，也不能含空白或逗号。
func SplitAddress(addr string) (local, domain string, err error) {
	i := strings.LastIndexByte(addr, '@')
	if i <= 0 || i == len(addr)-1 || strings.ContainsAny(addr, " \t,") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return addr[:i], addr[i+1:], nil
}

// DomainOf 返回地址的域名部分，非法地址返回空串
func DomainOf(addr string) string {
	_, domain, err := SplitAddress(addr)
	if err != nil {
		return ""
	}
	return domain
}

// ParseRecipients 解析逗号分隔的收件人列表
//
// 每一项去除首尾空白后必须是合法地址，顺序与提交时一致。
func ParseRecipients(list string) ([]string, error) {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, _, err := SplitAddress(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// JoinRecipients 以逗号拼接收件人，与 show 输出和完整性校验使用同一形式
func JoinRecipients(to []string) string {
	return strings.Join(to, ",")
}
