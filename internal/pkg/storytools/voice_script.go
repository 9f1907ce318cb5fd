package storytools

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// VoiceScriptGenerator 旁白台词生成器
// 为缺少 voice_script 的场景生成可朗读台词，生成结果仍会经过确定性清洗
type VoiceScriptGenerator struct {
	llmProvider LLMProvider
}

// NewVoiceScriptGenerator 创建旁白台词生成器实例
func NewVoiceScriptGenerator(llmProvider LLMProvider) *VoiceScriptGenerator {
	return &VoiceScriptGenerator{
		llmProvider: llmProvider,
	}
}

// ScriptFor 返回场景最终用于 TTS 的台词
// 优先级：场景自带 voice_script > LLM 生成 > 场景正文；三者都经 CleanVoiceScript 清洗
// 清洗后为空时回退为清洗后的场景正文，保证返回值在正文非空时非空
func (g *VoiceScriptGenerator) ScriptFor(ctx context.Context, scene SceneSpec) string {
	if script := CleanVoiceScript(scene.VoiceScript); script != "" {
		return script
	}

	if g.llmProvider != nil {
		raw, err := g.llmProvider.Generate(ctx, buildVoiceScriptPrompt(scene))
		if err != nil {
			log.Warn().Err(err).Msg("voice script generation failed, using scene text")
		} else if script := CleanVoiceScript(CleanJSONContent(raw)); script != "" {
			return script
		}
	}

	if script := CleanVoiceScript(scene.Text); script != "" {
		return script
	}

	return strings.TrimSpace(scene.Text)
}

// buildVoiceScriptPrompt 构造旁白台词生成提示词
func buildVoiceScriptPrompt(scene SceneSpec) string {
	var b strings.Builder
	b.WriteString("你是一名旁白撰稿人。\n")
	b.WriteString("请为下面的场景写一段可直接朗读的旁白。\n\n")
	b.WriteString("【要求】\n")
	b.WriteString("1. 只输出旁白正文，不要说话人标签、括号注释或舞台指示\n")
	b.WriteString("2. 最多两句话，使用与场景正文相同的语言\n")
	if hint := strings.TrimSpace(scene.VoiceHint); hint != "" {
		b.WriteString("3. 语气参考：")
		b.WriteString(hint)
		b.WriteString("\n")
	}
	b.WriteString("\n【场景正文】\n")
	b.WriteString(scene.Text)
	return b.String()
}
