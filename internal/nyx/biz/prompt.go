package biz

import "strings"

const (
	knowledgeHeader = "\n\n## Relevant Knowledge Base Information:\n"
	knowledgeSep    = "\n\n---\n\n"
	knowledgeFooter = "\n\nUse this information to help answer the user's question when relevant."
)

// AugmentPrompt 将检索到的段落追加到系统提示之后，没有段落时原样返回。
func AugmentPrompt(systemPrompt string, passages []string) string {
	if len(passages) == 0 {
		return systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString(knowledgeHeader)
	sb.WriteString(strings.Join(passages, knowledgeSep))
	sb.WriteString(knowledgeFooter)
	return sb.String()
}
