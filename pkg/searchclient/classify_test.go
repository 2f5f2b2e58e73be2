package searchclient

import (
	"testing"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRet(t *testing.T) {
	tests := []struct {
		name string
		ret  int
		want apperr.Kind
	}{
		{"success", 0, apperr.KindUnknown},
		{"legacy session expiry", -6, apperr.KindSessionExpired},
		{"session expiry", 200003, apperr.KindSessionExpired},
		{"rate limited", 200013, apperr.KindRateLimited},
		{"daily quota", 200042, apperr.KindQuotaExhausted},
		{"malformed parameter", 200002, apperr.KindTransient},
		{"unrecognized code", 987654, apperr.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyRet(tt.ret, "err msg")
			if tt.ret == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestSessionExpiredMessageCarriesMarker(t *testing.T) {
	err := classifyRet(200003, "invalid session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
}

func TestFatalClassification(t *testing.T) {
	assert.True(t, apperr.IsFatal(apperr.KindOf(classifyRet(-6, ""))))
	assert.True(t, apperr.IsFatal(apperr.KindOf(classifyRet(200042, ""))))
	assert.False(t, apperr.IsFatal(apperr.KindOf(classifyRet(200013, ""))))
	assert.False(t, apperr.IsFatal(apperr.KindOf(classifyRet(200002, ""))))
}
