package keyvox

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "test-api-key"
	testSecretKey = "test-secret-key"
)

var testCreds = Credentials{APIKey: testAPIKey, SecretKey: testSecretKey}

// 2024-10-21 07:28:00 UTC
var testSignTime = time.Date(2024, time.October, 21, 7, 28, 0, 0, time.UTC)

func TestFormatDate(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "Mon, 21 Oct 2024 07:28:00 GMT", FormatDate(testSignTime))
	assert.Equal(t, "Mon, 21 Oct 2024 07:28:00 GMT", FormatDate(testSignTime.In(jst)))
}

func TestDigest_EmptyBodyStillDigested(t *testing.T) {
	assert.Equal(t, "SHA-256=47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=", Digest(nil))
	assert.Equal(t, "SHA-256=RBNvo1WzZ4oRRq0W9+hknpT7T8If536DEMBg9hyq/4o=", Digest([]byte("{}")))
}

func TestRequestLine(t *testing.T) {
	assert.Equal(t, "\nPOST /api/eagle-pms/v1/getUnits HTTP/1.1", RequestLine(http.MethodPost, OpGetUnits))
}

func TestSigningInput(t *testing.T) {
	got := SigningInput("Mon, 21 Oct 2024 07:28:00 GMT", RequestLine("POST", "getUnits"), "SHA-256=abc")
	want := "date: Mon, 21 Oct 2024 07:28:00 GMT\nPOST /api/eagle-pms/v1/getUnits HTTP/1.1\ndigest: SHA-256=abc"
	assert.Equal(t, want, got)
}

func TestSign_KnownAnswers(t *testing.T) {
	tests := []struct {
		name      string
		op        string
		body      string
		digest    string
		signature string
	}{
		{
			name:      "empty object body",
			op:        OpGetUnits,
			body:      "{}",
			digest:    "SHA-256=RBNvo1WzZ4oRRq0W9+hknpT7T8If536DEMBg9hyq/4o=",
			signature: "SLMnujt0Nu1hZeVSGtZhXwOo6FuR3qEJG8zz0SmPW6Y=",
		},
		{
			name:      "same body different operation",
			op:        OpGetLockPinList,
			body:      "{}",
			digest:    "SHA-256=RBNvo1WzZ4oRRq0W9+hknpT7T8If536DEMBg9hyq/4o=",
			signature: "zo5sYRvnf2OWKcUgHZLI+fu/TzzN5dItlSwKyJUeZ4w=",
		},
		{
			name:      "lock id body",
			op:        OpGetLockPinList,
			body:      `{"lockId":"L1"}`,
			digest:    "SHA-256=HCi/cV5gF6rU4wUeNoBoaF7KVWUIYR9d/hOP0b4zQyI=",
			signature: "6kYM3i4GbAGwdWdmOTyfl0WH/HCT4sDDwJPKb97Bhgg=",
		},
		{
			name:      "lock id body on getUnits",
			op:        OpGetUnits,
			body:      `{"lockId":"L1"}`,
			digest:    "SHA-256=HCi/cV5gF6rU4wUeNoBoaF7KVWUIYR9d/hOP0b4zQyI=",
			signature: "4CO6U13u018Qm6bkYxjdZJRBqVprW5+tbRK6PZr5htQ=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Sign(testCreds, http.MethodPost, tt.op, []byte(tt.body), testSignTime)

			assert.Equal(t, "Mon, 21 Oct 2024 07:28:00 GMT", h.Date)
			assert.Equal(t, tt.digest, h.Digest)
			assert.Equal(t,
				`hmac username="test-api-key", algorithm="hmac-sha256", headers="date request-line digest", signature="`+tt.signature+`"`,
				h.Authorization)
			assert.Equal(t, DefaultTargetHost, h.TargetHost)
			assert.Equal(t, "application/json", h.ContentType)

			// 重复计算结果一致
			again := Sign(testCreds, http.MethodPost, tt.op, []byte(tt.body), testSignTime)
			assert.Equal(t, h, again)
		})
	}
}

func TestSignWithTarget_CustomHost(t *testing.T) {
	h := SignWithTarget(testCreds, http.MethodPost, OpGetUnits, []byte("{}"), testSignTime, "other.pms")
	assert.Equal(t, "other.pms", h.TargetHost)

	h = SignWithTarget(testCreds, http.MethodPost, OpGetUnits, []byte("{}"), testSignTime, "")
	assert.Equal(t, DefaultTargetHost, h.TargetHost)
}

func TestHeaders_Apply(t *testing.T) {
	h := Sign(testCreds, http.MethodPost, OpGetUnits, []byte("{}"), testSignTime)
	header := http.Header{}
	h.Apply(header)

	require.Equal(t, h.Date, header.Get("date"))
	require.Equal(t, h.Authorization, header.Get("authorization"))
	require.Equal(t, h.Digest, header.Get("digest"))
	require.Equal(t, "default.pms", header.Get("x-target-host"))
	require.Equal(t, "application/json", header.Get("content-type"))
}
