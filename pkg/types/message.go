package types

import "slices"

// Message 一封邮件
type Message struct {
	// ID 节点内追踪用的唯一标识，不参与协议
	ID string

	From    string
	To      []string
	Subject string
	Data    string

	// Hash 完整性标签（base64），可能为空
	Hash string
}

// DestinationDomains 返回去重后的目标域名，保持首次出现的顺序
func (m *Message) DestinationDomains() []string {
	seen := make(map[string]struct{}, len(m.To))
	domains := make([]string, 0, len(m.To))
	for _, rcpt := range m.To {
		d := DomainOf(rcpt)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	return domains
}

// Clone 深拷贝
func (m *Message) Clone() *Message {
	c := *m
	c.To = slices.Clone(m.To)
	return &c
}

// Entry 邮箱中的一条记录
type Entry struct {
	Index   int
	Message *Message
}
