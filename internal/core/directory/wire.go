package directory

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxFrameSize 单帧上限
const maxFrameSize = 64 * 1024

var errBadFrame = errors.New("directory: malformed frame")

// method RPC 方法
type method uint64

const (
	methodRegisterZone    method = 1
	methodRegisterMailbox method = 2
	methodGetZone         method = 3
	methodResolve         method = 4
)

func (m method) String() string {
	switch m {
	case methodRegisterZone:
		return "registerZone"
	case methodRegisterMailbox:
		return "registerMailbox"
	case methodGetZone:
		return "getZone"
	case methodResolve:
		return "resolve"
	}
	return fmt.Sprintf("method(%d)", uint64(m))
}

// status 响应状态，类型化错误按状态跨进程还原
type status uint64

const (
	statusOK                status = 0
	statusNotFound          status = 1
	statusAlreadyRegistered status = 2
	statusInvalidDomain     status = 3
	statusInternal          status = 4
)

// request 字段：
//
//	1 method  varint
//	2 name    string  域名、标签或待解析的名字
//	3 addr    string  区域句柄或邮箱节点地址
type request struct {
	Method method
	Name   string
	Addr   string
}

func (r *request) marshal() []byte {
	b := make([]byte, 0, 8+len(r.Name)+len(r.Addr))
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Method))
	if r.Name != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, r.Name)
	}
	if r.Addr != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, r.Addr)
	}
	return b
}

func (r *request) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, v uint64, s string) {
		switch num {
		case 1:
			r.Method = method(v)
		case 2:
			r.Name = s
		case 3:
			r.Addr = s
		}
	})
}

// response 字段：
//
//	1 status  varint
//	2 addr    string  解析结果或子区域句柄
//	3 zone    string  错误发生的区域
//	4 subject string  错误涉及的标签、域名或名字
//	5 detail  string  补充说明（如 InvalidDomain 缺失的区域）
type response struct {
	Status  status
	Addr    string
	Zone    string
	Subject string
	Detail  string
}

func (r *response) marshal() []byte {
	b := make([]byte, 0, 16+len(r.Addr)+len(r.Zone)+len(r.Subject)+len(r.Detail))
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Status))
	for _, f := range []struct {
		num protowire.Number
		val string
	}{{2, r.Addr}, {3, r.Zone}, {4, r.Subject}, {5, r.Detail}} {
		if f.val == "" {
			continue
		}
		b = protowire.AppendTag(b, f.num, protowire.BytesType)
		b = protowire.AppendString(b, f.val)
	}
	return b
}

func (r *response) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, v uint64, s string) {
		switch num {
		case 1:
			r.Status = status(v)
		case 2:
			r.Addr = s
		case 3:
			r.Zone = s
		case 4:
			r.Subject = s
		case 5:
			r.Detail = s
		}
	})
}

// consumeFields 遍历 varint 与 bytes 字段，跳过未知类型
func consumeFields(b []byte, fn func(num protowire.Number, v uint64, s string)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errBadFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("%w: %v", errBadFrame, protowire.ParseError(m))
			}
			fn(num, v, "")
			n = m
		case protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return fmt.Errorf("%w: %v", errBadFrame, protowire.ParseError(m))
			}
			fn(num, 0, s)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", errBadFrame, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

// writeFrame 写出 uvarint 长度前缀的帧
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("%w: frame too large", errBadFrame)
	}
	buf := protowire.AppendVarint(make([]byte, 0, len(payload)+3), uint64(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取一帧
func readFrame(r *bufio.Reader) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if size > maxFrameSize {
		return nil, fmt.Errorf("%w: frame too large", errBadFrame)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// errorResponse 将类型化错误编码为响应
func errorResponse(err error) *response {
	var (
		already *AlreadyRegisteredError
		invalid *InvalidDomainError
		missing *NotFoundError
	)
	switch {
	case err == nil:
		return &response{Status: statusOK}
	case errors.As(err, &already):
		return &response{Status: statusAlreadyRegistered, Zone: already.Zone, Subject: already.Label}
	case errors.As(err, &invalid):
		return &response{Status: statusInvalidDomain, Subject: invalid.Domain, Detail: invalid.Missing}
	case errors.As(err, &missing):
		return &response{Status: statusNotFound, Subject: missing.Name}
	default:
		return &response{Status: statusInternal, Detail: err.Error()}
	}
}

// err 还原类型化错误
func (r *response) err() error {
	switch r.Status {
	case statusOK:
		return nil
	case statusAlreadyRegistered:
		return &AlreadyRegisteredError{Zone: r.Zone, Label: r.Subject}
	case statusInvalidDomain:
		return &InvalidDomainError{Domain: r.Subject, Missing: r.Detail}
	case statusNotFound:
		return &NotFoundError{Name: r.Subject}
	default:
		return fmt.Errorf("%w: %s", ErrRemote, r.Detail)
	}
}
