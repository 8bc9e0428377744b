package securechannel

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// Cipher 信道的 AES-CTR 状态
//
// 加密与解密各持有一条密钥流，从相同的 key/iv 起步，
// 每次调用都从上一次停下的位置继续。
type Cipher struct {
	enc cipher.Stream
	dec cipher.Stream
}

// NewCipher 以 key/iv 初始化双向密钥流
func NewCipher(key, iv []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: cipher: %v", ErrHandshake, err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrHandshake, block.BlockSize())
	}
	return &Cipher{
		enc: cipher.NewCTR(block, iv),
		dec: cipher.NewCTR(block, iv),
	}, nil
}

// Encrypt 推进加密密钥流
func (c *Cipher) Encrypt(plain []byte) []byte {
	out := make([]byte, len(plain))
	c.enc.XORKeyStream(out, plain)
	return out
}

// Decrypt 推进解密密钥流
func (c *Cipher) Decrypt(ct []byte) []byte {
	out := make([]byte, len(ct))
	c.dec.XORKeyStream(out, ct)
	return out
}

// EncryptLine 加密一行并编码为 base64
func (c *Cipher) EncryptLine(line string) string {
	return b64.EncodeToString(c.Encrypt([]byte(line)))
}

// DecryptLine 解码并解密一行
//
// 非法 base64 不会推进密钥流。
func (c *Cipher) DecryptLine(line string) (string, error) {
	ct, err := b64.DecodeString(line)
	if err != nil {
		return "", ErrBadCiphertext
	}
	return string(c.Decrypt(ct)), nil
}
