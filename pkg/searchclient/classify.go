package searchclient

import (
	"fmt"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
)

// baseResp is the well-known upstream envelope wrapping every response:
// {"base_resp":{"ret":int,"err_msg":string}, ...}.
type baseResp struct {
	Ret    int    `json:"ret"`
	ErrMsg string `json:"err_msg"`
}

// SessionExpiredMessage is the verbatim user-facing message surfaced when
// the upstream session has expired, so the front-end can prompt re-login.
const SessionExpiredMessage = "微信登录已过期，请重新登录 (session expired)"

// classifyRet turns the upstream's numeric ret code into this system's
// error taxonomy: -6 and 200003 are session-expiry codes, 200013 is the
// rate-limit class, 200002 is a malformed-parameter class treated as
// transient, and 200042 is the daily-quota class.
func classifyRet(ret int, errMsg string) error {
	switch ret {
	case 0:
		return nil
	case -6, 200003:
		return apperr.New(apperr.KindSessionExpired, SessionExpiredMessage, fmt.Errorf("ret=%d: %s", ret, errMsg))
	case 200013:
		return apperr.New(apperr.KindRateLimited, "upstream rate limited", fmt.Errorf("ret=%d: %s", ret, errMsg))
	case 200042:
		return apperr.New(apperr.KindQuotaExhausted, "daily search quota exhausted", fmt.Errorf("ret=%d: %s", ret, errMsg))
	case 200002:
		return apperr.New(apperr.KindTransient, "malformed search request", fmt.Errorf("ret=%d: %s", ret, errMsg))
	default:
		return apperr.New(apperr.KindTransient, "upstream search error", fmt.Errorf("ret=%d: %s", ret, errMsg))
	}
}
