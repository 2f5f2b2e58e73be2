package pipeline

import "fmt"

// keywordPrompt asks the keyword provider for a small set of search
// queries covering the research intent, as a bare JSON array.
func keywordPrompt(intent string) string {
	return fmt.Sprintf(`你是一个中文社交媒体文章检索助手。针对下面的研究主题，生成 3 到 8 个简洁的搜索关键词，覆盖该主题的不同角度。每个关键词不超过 10 个字。

研究主题：%s

只输出一个 JSON 数组，例如 ["关键词一","关键词二","关键词三"]，不要输出任何其他内容。`, intent)
}

// strictKeywordPrompt is the retry prompt used after a parse failure.
func strictKeywordPrompt(intent string) string {
	return fmt.Sprintf(`针对研究主题「%s」生成 3 到 8 个搜索关键词。

严格要求：回复必须是且仅是一个合法的 JSON 字符串数组，首字符为 [，末字符为 ]。不要使用 markdown 代码块，不要添加解释。`, intent)
}

const relevanceSchemaHint = `{"relevance_score": <number 0..1>, "insight": "<string>"}`

// relevancePrompt asks the reasoning provider to score a candidate
// article against the intent and produce a short insight.
func relevancePrompt(intent, title, accountName string) string {
	return fmt.Sprintf(`评估下面这篇公众号文章与研究主题的相关性，并用 1 到 3 句话总结这篇文章对该研究主题的参考价值。

研究主题：%s

文章标题：%s
发布账号：%s

只输出一个 JSON 对象，格式为 %s。relevance_score 为 0 到 1 之间的小数，insight 为中文。不要输出任何其他内容。`, intent, title, accountName, relevanceSchemaHint)
}
