package securechannel

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"io"
)

// 握手参数长度（字节）
const (
	ChallengeSize = 32
	KeySize       = 32
	IVSize        = 16
)

const paramsPrefix = "ok "

var b64 = base64.StdEncoding

// Params 客户端生成的握手参数
type Params struct {
	Challenge []byte
	Key       []byte
	IV        []byte
}

// NewParams 从随机源生成挑战、AES-256 密钥与 IV
func NewParams(r io.Reader) (*Params, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, ChallengeSize+KeySize+IVSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("generate handshake params: %w", err)
	}
	return &Params{
		Challenge: buf[:ChallengeSize],
		Key:       buf[ChallengeSize : ChallengeSize+KeySize],
		IV:        buf[ChallengeSize+KeySize:],
	}, nil
}

// EncodedChallenge 返回挑战的 base64 形式，服务端回显的就是它
func (p *Params) EncodedChallenge() string {
	return b64.EncodeToString(p.Challenge)
}

// Encode 构造明文 "ok <challenge> <key> <iv>"
func (p *Params) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(paramsPrefix)
	buf.WriteString(b64.EncodeToString(p.Challenge))
	buf.WriteByte(' ')
	buf.WriteString(b64.EncodeToString(p.Key))
	buf.WriteByte(' ')
	buf.WriteString(b64.EncodeToString(p.IV))
	return buf.Bytes()
}

// ParseParams 按位置解析握手明文
//
// 挑战与密钥字段的宽度由各自的编码长度决定，IV 占据剩余部分。
func ParseParams(plain []byte) (*Params, error) {
	if !bytes.HasPrefix(plain, []byte(paramsPrefix)) {
		return nil, ErrMalformed
	}
	rest := plain[len(paramsPrefix):]

	challenge, rest, err := takeField(rest, b64.EncodedLen(ChallengeSize), true)
	if err != nil {
		return nil, err
	}
	key, rest, err := takeField(rest, b64.EncodedLen(KeySize), true)
	if err != nil {
		return nil, err
	}

	p := &Params{}
	if p.Challenge, err = decodeExact(challenge, ChallengeSize); err != nil {
		return nil, err
	}
	if p.Key, err = decodeExact(key, KeySize); err != nil {
		return nil, err
	}
	if p.IV, err = decodeExact(rest, IVSize); err != nil {
		return nil, err
	}
	return p, nil
}

// takeField 取出定宽字段，sep 为真时要求其后紧跟一个空格
func takeField(b []byte, width int, sep bool) (field, rest []byte, err error) {
	need := width
	if sep {
		need++
	}
	if len(b) < need {
		return nil, nil, ErrMalformed
	}
	if sep && b[width] != ' ' {
		return nil, nil, ErrMalformed
	}
	return b[:width], b[need:], nil
}

func decodeExact(field []byte, size int) ([]byte, error) {
	out := make([]byte, b64.DecodedLen(len(field)))
	n, err := b64.Decode(out, field)
	if err != nil || n != size {
		return nil, ErrMalformed
	}
	return out[:n], nil
}

// Seal 用服务端公钥加密握手明文，返回可直接发送的 base64 行
//
// 明文必须放得进一个 PKCS#1 v1.5 块。
func Seal(pub *rsa.PublicKey, p *Params) (string, error) {
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, p.Encode())
	if err != nil {
		return "", fmt.Errorf("%w: seal: %v", ErrHandshake, err)
	}
	return b64.EncodeToString(ct), nil
}

// Open 用私钥解密握手行并解析参数
func Open(priv *rsa.PrivateKey, line string) (*Params, error) {
	ct, err := b64.DecodeString(line)
	if err != nil {
		return nil, ErrMalformed
	}
	plain, err := rsa.DecryptPKCS1v15(nil, priv, ct)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrHandshake, err)
	}
	return ParseParams(plain)
}
