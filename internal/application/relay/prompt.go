package relay

import (
	"fmt"
	"strings"

	"concierge-relay-api/internal/domain/entity"
)

// 运营方覆盖指令的最小有效长度，低于此值视为未设置
const minOverrideLen = 5

// defaultInstructionTemplate 内置系统指令模板。
// 按目标语言与接地上下文参数化；要求模型跟随客户所用的
// 语言和文字书写回复（script detection），除非配置了目标语言。
const defaultInstructionTemplate = `You are a helpful and friendly customer service assistant for this business.

Your goal is to answer customer questions using the provided context.

**Context (Knowledge Base):**
%s

**Instructions:**
1. **Match the Customer's Script:** Detect the language and writing script the customer uses (including transliterated or mixed-language text with typos) and reply the same way%s.
2. **Be Smart:** If an item is not listed exactly, match it to the closest category in the context.
3. **Be Concise:** Keep answers short and easy to read on WhatsApp. Use emojis sparingly.
4. **Polite Refusal:** If you are sure the context does not cover the question, say so politely, but try to be helpful first.`

// BuildSystemInstruction 组装系统指令。
// 运营方覆盖指令（长度 > minOverrideLen）优先于内置模板，
// 这是刻意保留的扩展点；两条路径都把解析出的上下文原文附上。
func BuildSystemInstruction(cfg *entity.TenantConfig, contextText string) string {
	if override := strings.TrimSpace(cfg.SystemInstructionOverride()); len(override) > minOverrideLen {
		return fmt.Sprintf("%s\n\n**Context (Knowledge Base):**\n%s", override, contextText)
	}

	languageRule := ""
	if lang := strings.TrimSpace(cfg.TargetLanguage()); lang != "" {
		languageRule = fmt.Sprintf("; when in doubt, answer in %s", lang)
	}
	return fmt.Sprintf(defaultInstructionTemplate, contextText, languageRule)
}
