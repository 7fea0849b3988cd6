package keyvox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

const (
	// APIPathPrefix eagle-pms 接口路径前缀
	APIPathPrefix = "/api/eagle-pms/v1/"

	// DefaultTargetHost 后端租户标识
	DefaultTargetHost = "default.pms"

	signedHeaderList = "date request-line digest"
)

// Credentials API 凭证，构造后不可修改
type Credentials struct {
	APIKey    string
	SecretKey string
}

// Headers 签名后的请求头
type Headers struct {
	Date          string
	Authorization string
	Digest        string
	TargetHost    string
	ContentType   string
}

// Apply 写入 http.Header
func (h Headers) Apply(header http.Header) {
	header.Set("date", h.Date)
	header.Set("authorization", h.Authorization)
	header.Set("x-target-host", h.TargetHost)
	header.Set("digest", h.Digest)
	header.Set("content-type", h.ContentType)
}

// FormatDate 生成 RFC-1123 格式的 GMT 时间
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// Digest 计算请求体摘要，空请求体同样需要计算
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// RequestLine 以换行开头的请求行
func RequestLine(method, operation string) string {
	return fmt.Sprintf("\n%s %s%s HTTP/1.1", method, APIPathPrefix, operation)
}

// SigningInput 待签名字符串
func SigningInput(date, requestLine, digest string) string {
	return "date: " + date + requestLine + "\ndigest: " + digest
}

// Signature HMAC-SHA256 签名 (base64)
func Signature(secretKey, signingInput string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(signingInput))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization 组装 authorization 头
func Authorization(apiKey, signature string) string {
	return fmt.Sprintf(`hmac username="%s", algorithm="hmac-sha256", headers="%s", signature="%s"`,
		apiKey, signedHeaderList, signature)
}

// Sign 对一次请求签名
// date 只生成一次，请求头和签名输入使用同一个字符串
func Sign(creds Credentials, method, operation string, body []byte, at time.Time) Headers {
	return SignWithTarget(creds, method, operation, body, at, DefaultTargetHost)
}

// SignWithTarget 与 Sign 相同，但可指定 x-target-host
func SignWithTarget(creds Credentials, method, operation string, body []byte, at time.Time, targetHost string) Headers {
	date := FormatDate(at)
	digest := Digest(body)
	input := SigningInput(date, RequestLine(method, operation), digest)

	if targetHost == "" {
		targetHost = DefaultTargetHost
	}

	return Headers{
		Date:          date,
		Authorization: Authorization(creds.APIKey, Signature(creds.SecretKey, input)),
		Digest:        digest,
		TargetHost:    targetHost,
		ContentType:   "application/json",
	}
}
