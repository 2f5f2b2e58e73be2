package searchclient

import (
	"encoding/json"
	"html"
	"time"
)

// accountSearchResponse is the account-discovery hop's response shape.
type accountSearchResponse struct {
	BaseResp baseResp `json:"base_resp"`
	List     []struct {
		FakeID   string `json:"fakeid"`
		Nickname string `json:"nickname"`
	} `json:"list"`
}

// AccountInfo identifies a single upstream publishing account.
type AccountInfo struct {
	FakeID   string
	Nickname string
}

func parseAccountSearch(body []byte) ([]AccountInfo, error) {
	var parsed accountSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if err := classifyRet(parsed.BaseResp.Ret, parsed.BaseResp.ErrMsg); err != nil {
		return nil, err
	}
	accounts := make([]AccountInfo, 0, len(parsed.List))
	for _, item := range parsed.List {
		if item.FakeID == "" {
			continue
		}
		accounts = append(accounts, AccountInfo{FakeID: item.FakeID, Nickname: item.Nickname})
	}
	return accounts, nil
}

// articleListResponse is the per-account article-listing hop's outer
// envelope. The upstream's actual article array is double-encoded: a
// JSON-encoded string nested inside this outer body, HTML-entity-escaped
// (quotes as &quot;), and exposed under two alternate field names across
// API versions.
type articleListResponse struct {
	BaseResp    baseResp `json:"base_resp"`
	AppMsgList  string   `json:"app_msg_list,omitempty"`  // current field name
	PublishPage string   `json:"publish_page,omitempty"`  // legacy field name
}

type innerArticleList struct {
	List []struct {
		AppMsgExtInfo struct {
			Title      string `json:"title"`
			Link       string `json:"link"`
			CreateTime int64  `json:"create_time"`
		} `json:"app_msg_ext_info"`
	} `json:"publish_list,omitempty"`
	// Fallback shape used by app_msg_list responses.
	AppMsgInfo []struct {
		Title      string `json:"title"`
		Link       string `json:"link"`
		CreateTime int64  `json:"create_time"`
	} `json:"app_msg_info,omitempty"`
}

func parseArticleList(body []byte, accountName, accountFakeID string) ([]Candidate, error) {
	var outer articleListResponse
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, err
	}
	if err := classifyRet(outer.BaseResp.Ret, outer.BaseResp.ErrMsg); err != nil {
		return nil, err
	}

	raw := outer.AppMsgList
	if raw == "" {
		raw = outer.PublishPage
	}
	if raw == "" {
		return nil, nil
	}

	unescaped := html.UnescapeString(raw)
	var inner innerArticleList
	if err := json.Unmarshal([]byte(unescaped), &inner); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(inner.List)+len(inner.AppMsgInfo))
	for _, item := range inner.List {
		if item.AppMsgExtInfo.Link == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:         item.AppMsgExtInfo.Title,
			URL:           item.AppMsgExtInfo.Link,
			AccountName:   accountName,
			AccountFakeID: accountFakeID,
			PublishTime:   time.Unix(item.AppMsgExtInfo.CreateTime, 0).UTC(),
		})
	}
	for _, item := range inner.AppMsgInfo {
		if item.Link == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Title:         item.Title,
			URL:           item.Link,
			AccountName:   accountName,
			AccountFakeID: accountFakeID,
			PublishTime:   time.Unix(item.CreateTime, 0).UTC(),
		})
	}
	return candidates, nil
}
