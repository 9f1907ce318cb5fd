package storytools

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultVisualStyle 未指定风格时的兜底视觉风格
const DefaultVisualStyle = "絵本風、明るい色彩、やさしい雰囲気"

// continuityHint 第二个场景起追加的连贯性提示，保证跨场景角色与配色一致
const continuityHint = "前のシーンと同一のキャラクターデザイン・配色・トーンを維持"

// StyleResolver 视觉风格解析器
// 从整篇文本推断一条贯穿全部场景的统一视觉风格描述
type StyleResolver struct {
	llmProvider LLMProvider
}

// NewStyleResolver 创建视觉风格解析器实例
func NewStyleResolver(llmProvider LLMProvider) *StyleResolver {
	return &StyleResolver{
		llmProvider: llmProvider,
	}
}

// Resolve 解析视觉风格
// userStyle 非空时直接采用；否则调用 LLM 从文本推断；失败时返回默认风格
func (s *StyleResolver) Resolve(ctx context.Context, text, userStyle string) string {
	if style := strings.TrimSpace(userStyle); style != "" {
		return style
	}

	if s.llmProvider == nil {
		return DefaultVisualStyle
	}

	raw, err := s.llmProvider.Generate(ctx, buildStyleResolvePrompt(text))
	if err != nil {
		log.Warn().Err(err).Msg("style inference failed, using default visual style")
		return DefaultVisualStyle
	}

	style := strings.TrimSpace(CleanJSONContent(raw))
	style = strings.Trim(style, "\"「」")
	if style == "" {
		return DefaultVisualStyle
	}

	return style
}

// BuildStyleHint 构造第 idx 个场景（从 1 开始）的风格提示
// 第二个场景起追加连贯性约束
func BuildStyleHint(style string, idx int) string {
	if idx <= 1 {
		return style
	}
	if style == "" {
		return continuityHint
	}
	return style + "。" + continuityHint
}

// buildStyleResolvePrompt 构造风格推断提示词
func buildStyleResolvePrompt(text string) string {
	var b strings.Builder
	b.WriteString("你是一名插画艺术指导。\n")
	b.WriteString("请阅读下面的文本，给出一条适合为其全部场景配图的统一视觉风格描述。\n\n")
	b.WriteString("【要求】\n")
	b.WriteString("1. 只输出一行风格描述，不要任何解释或标点以外的装饰\n")
	b.WriteString("2. 描述包含画风、色彩、氛围三个方面，30 字以内\n")
	b.WriteString("3. 使用与文本相同的语言\n\n")
	b.WriteString("【文本】\n")
	b.WriteString(text)
	return b.String()
}
