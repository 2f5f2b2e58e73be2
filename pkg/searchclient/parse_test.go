package searchclient

import (
	"encoding/json"
	"testing"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountSearch(t *testing.T) {
	t.Run("accounts extracted", func(t *testing.T) {
		body := []byte(`{"base_resp":{"ret":0,"err_msg":"ok"},"list":[
			{"fakeid":"MzA3","nickname":"广告观察"},
			{"fakeid":"","nickname":"no id, skipped"},
			{"fakeid":"MzB9","nickname":"增长黑客"}
		]}`)
		accounts, err := parseAccountSearch(body)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "MzA3", accounts[0].FakeID)
		assert.Equal(t, "增长黑客", accounts[1].Nickname)
	})

	t.Run("non-zero ret surfaces classified error", func(t *testing.T) {
		body := []byte(`{"base_resp":{"ret":200003,"err_msg":"invalid session"}}`)
		_, err := parseAccountSearch(body)
		require.Error(t, err)
		assert.Equal(t, apperr.KindSessionExpired, apperr.KindOf(err))
	})
}

func TestParseArticleListDoubleEncoded(t *testing.T) {
	// The article array arrives as a JSON-encoded string nested in the
	// outer body, here with backslash-escaped quotes; the entity-escaped
	// form is covered by the legacy-field test below.
	inner := `{"publish_list":[{"app_msg_ext_info":{"title":"归因模型详解","link":"https://mp.weixin.qq.com/s/abc","create_time":1700000000}}]}`
	var outerRaw struct {
		BaseResp   baseResp `json:"base_resp"`
		AppMsgList string   `json:"app_msg_list"`
	}
	outerRaw.AppMsgList = inner
	body, err := json.Marshal(outerRaw)
	require.NoError(t, err)

	candidates, err := parseArticleList(body, "广告观察", "MzA3")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "归因模型详解", candidates[0].Title)
	assert.Equal(t, "https://mp.weixin.qq.com/s/abc", candidates[0].URL)
	assert.Equal(t, "广告观察", candidates[0].AccountName)
	assert.Equal(t, "MzA3", candidates[0].AccountFakeID)
	assert.Equal(t, int64(1700000000), candidates[0].PublishTime.Unix())
}

func TestParseArticleListEntityEscapedLegacyField(t *testing.T) {
	// Legacy field name plus &quot;-escaped quotes inside the payload.
	body := []byte(`{"base_resp":{"ret":0},"publish_page":"{&quot;app_msg_info&quot;:[{&quot;title&quot;:&quot;MMM 入门&quot;,&quot;link&quot;:&quot;https://mp.weixin.qq.com/s/def&quot;,&quot;create_time&quot;:1700000001}]}"}`)
	candidates, err := parseArticleList(body, "acc", "id")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "MMM 入门", candidates[0].Title)
	assert.Equal(t, "https://mp.weixin.qq.com/s/def", candidates[0].URL)
}

func TestParseArticleListEmptyPayload(t *testing.T) {
	body := []byte(`{"base_resp":{"ret":0}}`)
	candidates, err := parseArticleList(body, "acc", "id")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCursorRoundTrip(t *testing.T) {
	state := cursorState{
		Accounts:   []AccountInfo{{FakeID: "MzA3", Nickname: "广告观察"}},
		AccountIdx: 0,
		Offset:     20,
	}
	decoded, err := decodeCursor(encodeCursor(state))
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	empty, err := decodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, empty.Accounts)

	_, err = decodeCursor("not base64!!")
	assert.Error(t, err)
}
