package biz

import "strings"

type fallbackRule struct {
	prefix   bool
	keywords []string
	reply    func(businessName string) string
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

// fallbackRules 按顺序匹配，第一条命中的规则生效。
var fallbackRules = []fallbackRule{
	{
		prefix:   true,
		keywords: []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"},
		reply: func(name string) string {
			return "Hello! Welcome to " + name + ". How can I help you today?"
		},
	},
	{
		keywords: []string{"hours", "open", "schedule"},
		reply:    fixed("For our business hours, please check our website or contact us directly."),
	},
	{
		keywords: []string{"contact", "email", "phone", "reach"},
		reply:    fixed("You can reach us through our contact page. How else can I help?"),
	},
	{
		keywords: []string{"price", "cost", "pricing", "how much"},
		reply:    fixed("For pricing information, please contact our team for a customized quote."),
	},
	{
		keywords: []string{"thank"},
		reply:    fixed("You're welcome! Is there anything else I can help with?"),
	},
	{
		keywords: []string{"bye", "goodbye", "see you", "take care"},
		reply: func(name string) string {
			return "Thank you for chatting with " + name + "! Have a great day!"
		},
	},
	{
		keywords: []string{"help", "support", "assist"},
		reply:    fixed("I'm here to help! You can ask me about our services, hours, contact information, or any other questions you might have."),
	},
}

const defaultFallbackReply = "Thanks for your message! I'm currently running in demo mode. " +
	"For more detailed assistance, please contact our team directly."

func (r fallbackRule) match(msg string) bool {
	for _, kw := range r.keywords {
		if r.prefix && strings.HasPrefix(msg, kw) {
			return true
		}
		if !r.prefix && strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// FallbackReply 演示模式下的规则回复，基于最后一条消息的小写形式。
// 匹配是朴素的前缀/子串判断，"history" 也会命中问候规则。
func FallbackReply(message, businessName string) string {
	msg := strings.ToLower(message)
	for _, rule := range fallbackRules {
		if rule.match(msg) {
			return rule.reply(businessName)
		}
	}
	return defaultFallbackReply
}
