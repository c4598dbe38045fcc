// Package tlsutil 提供补全端点使用的 TLS 配置与共享 HTTP 连接池
// （TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
