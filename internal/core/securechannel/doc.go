// Package securechannel 实现邮箱访问协议的安全信道
//
// 握手由客户端发起，服务端以众所周知的 RSA 公钥标识：
//
//	C -> S  startsecure
//	S -> C  ok <componentId>
//	C -> S  base64(RSA-PKCS1v15("ok <challenge> <key> <iv>"))
//	S -> C  ok <challenge>
//	C -> S  AES-CTR("ok")
//
// 三个字段均为 base64；挑战与密钥各 32 字节，IV 16 字节。
// 确认之后每一行（双向）都是 base64(AES-CTR(行内容))。
// 两个方向使用同一 key/iv，各自维护一条连续的密钥流，不按行重置，
// 因此加解密必须严格按协议顺序进行。
//
// 握手中的任何错误都是致命的：信道立即关闭，不发送任何响应。
package securechannel
