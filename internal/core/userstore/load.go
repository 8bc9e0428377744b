package userstore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseProperties 解析 "user = password" 形式的属性文本
//
// 空行与以 '#' 或 '!' 开头的行被忽略；分隔符可以是 '=' 或 ':'。
func ParseProperties(r io.Reader) (map[string]string, error) {
	users := make(map[string]string)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		i := strings.IndexAny(line, "=:")
		if i < 0 {
			return nil, fmt.Errorf("userstore: line %d: missing separator", lineNo)
		}
		user := strings.TrimSpace(line[:i])
		if user == "" {
			return nil, fmt.Errorf("userstore: line %d: %w", lineNo, ErrEmptyUser)
		}
		users[user] = strings.TrimSpace(line[i+1:])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Load 合并属性文件与内联用户，同名时内联优先
func Load(path string, inline map[string]string) (*Registry, error) {
	users := make(map[string]string)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("userstore: %w", err)
		}
		defer f.Close()
		fromFile, err := ParseProperties(f)
		if err != nil {
			return nil, err
		}
		for u, p := range fromFile {
			users[u] = p
		}
	}
	for u, p := range inline {
		users[u] = p
	}
	return New(users)
}
