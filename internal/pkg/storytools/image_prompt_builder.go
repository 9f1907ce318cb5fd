package storytools

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// ImagePromptBuilder 画面提示词构造器
// 将「场景正文 + 画面提示 + 统一风格」组合为文生图模型可用的提示词
type ImagePromptBuilder struct {
	llmProvider LLMProvider
}

// NewImagePromptBuilder 创建画面提示词构造器实例
func NewImagePromptBuilder(llmProvider LLMProvider) *ImagePromptBuilder {
	return &ImagePromptBuilder{
		llmProvider: llmProvider,
	}
}

// Build 构造指定场景的文生图提示词
// styleHint 为已含连贯性约束的风格提示；LLM 不可用或失败时回退为直接拼接
func (b *ImagePromptBuilder) Build(ctx context.Context, scene SceneSpec, styleHint string) string {
	if b.llmProvider == nil {
		return fallbackImagePrompt(scene, styleHint)
	}

	raw, err := b.llmProvider.Generate(ctx, buildImagePromptRequest(scene, styleHint))
	if err != nil {
		log.Warn().Err(err).Msg("image prompt refinement failed, using concatenated prompt")
		return fallbackImagePrompt(scene, styleHint)
	}

	prompt := strings.TrimSpace(CleanJSONContent(raw))
	if prompt == "" {
		return fallbackImagePrompt(scene, styleHint)
	}

	return prompt
}

// fallbackImagePrompt 无 LLM 时的兜底提示词：正文 + 画面提示 + 风格直接拼接
func fallbackImagePrompt(scene SceneSpec, styleHint string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{scene.Text, scene.ImageHint, styleHint} {
		if s = strings.TrimRight(strings.TrimSpace(s), "。．"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "。")
}

// buildImagePromptRequest 构造提示词精炼请求
func buildImagePromptRequest(scene SceneSpec, styleHint string) string {
	var b strings.Builder
	b.WriteString("你是一名文生图提示词工程师。\n")
	b.WriteString("请根据场景内容写一条适合文生图模型的提示词。\n\n")
	b.WriteString("【要求】\n")
	b.WriteString("1. 只输出提示词本身，不要任何解释\n")
	b.WriteString("2. 描述画面主体、构图与氛围，不要出现文字、字幕、水印类内容\n")
	b.WriteString("3. 必须体现给定的视觉风格\n\n")
	b.WriteString("【场景正文】\n")
	b.WriteString(scene.Text)
	b.WriteString("\n\n")
	if hint := strings.TrimSpace(scene.ImageHint); hint != "" {
		b.WriteString("【画面提示】\n")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	b.WriteString("【视觉风格】\n")
	b.WriteString(styleHint)
	return b.String()
}
