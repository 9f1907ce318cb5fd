package storytools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// SceneSpec 场景规格
// 文本分镜的最小单位：每个场景产出一张图片和一段旁白音频
type SceneSpec struct {
	Text        string `json:"text"`         // 场景正文（保持原文语言）
	ImageHint   string `json:"image_hint"`   // 画面提示（可选）
	VoiceHint   string `json:"voice_hint"`   // 旁白语气提示（可选）
	VoiceScript string `json:"voice_script"` // 清理后的可朗读台词（可为空）
	SFXHint     string `json:"sfx_hint"`     // 音效提示（当前下游未使用）
}

// sceneSplitResult LLM 分镜输出的解析结构
// 仅用于边界校验，校验失败映射为本地回退而不是错误
type sceneSplitResult struct {
	Scenes []SceneSpec `json:"scenes"`
}

// SceneSplitter 文本分镜器
// 用 LLM 将叙事/说明文本拆分为有序的场景列表
//
// 设计原则：
//   - 不负责落库 / 不依赖 HTTP，只负责组装 prompt 并调用上层注入的 LLM 客户端
//   - 任何失败（网络、格式错误、空结果）都回退为「整篇文本包成单一场景」，
//     保证返回列表永不为空、调用方无需处理错误
type SceneSplitter struct {
	llmProvider LLMProvider
}

// NewSceneSplitter 创建文本分镜器实例
func NewSceneSplitter(llmProvider LLMProvider) *SceneSplitter {
	return &SceneSplitter{
		llmProvider: llmProvider,
	}
}

// Split 将文本拆分为最多 maxScenes 个场景
// 返回列表保证非空；maxScenes <= 0 时视为不限制
func (s *SceneSplitter) Split(ctx context.Context, text string, maxScenes int) []SceneSpec {
	fallback := []SceneSpec{{Text: text}}

	if s.llmProvider == nil || strings.TrimSpace(text) == "" {
		return fallback
	}

	prompt := buildSceneSplitPrompt(text, maxScenes)

	raw, err := s.llmProvider.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("scene split LLM call failed, falling back to single scene")
		return fallback
	}

	var result sceneSplitResult
	if err := json.Unmarshal([]byte(CleanJSONContent(raw)), &result); err != nil {
		log.Warn().Err(err).Msg("scene split output malformed, falling back to single scene")
		return fallback
	}

	scenes := make([]SceneSpec, 0, len(result.Scenes))
	for _, sc := range result.Scenes {
		sc.Text = strings.TrimSpace(sc.Text)
		if sc.Text == "" {
			continue
		}
		scenes = append(scenes, sc)
	}

	if len(scenes) == 0 {
		return fallback
	}

	if maxScenes > 0 && len(scenes) > maxScenes {
		scenes = scenes[:maxScenes]
	}

	return scenes
}

// buildSceneSplitPrompt 构造分镜提示词
// 要求生成严格 JSON 格式的场景数组
func buildSceneSplitPrompt(text string, maxScenes int) string {
	limit := "不限"
	if maxScenes > 0 {
		limit = fmt.Sprintf("最多 %d 个", maxScenes)
	}

	var b strings.Builder
	b.WriteString("你是一名专业的分镜脚本助手。\n")
	b.WriteString("请将下面的叙事/说明文本按自然的内容单元拆分为场景（" + limit + "），")
	b.WriteString("每个场景将生成一张插图和一段旁白音频。\n\n")

	b.WriteString("【输出格式要求 - 必须严格遵守】\n")
	b.WriteString("你的输出必须是一个有效的 JSON 对象，可以直接被 json.Unmarshal() 解析：\n")
	b.WriteString("1. 不要使用 markdown 代码块标记（不要使用 ```json 或 ```）\n")
	b.WriteString("2. 不要添加任何解释、说明或额外文字，只输出 JSON\n")
	b.WriteString("3. 所有键名和字符串值必须使用双引号包裹\n")
	b.WriteString("4. 禁止在数组或对象的最后一个元素后添加逗号\n\n")

	b.WriteString("【输出格式】\n")
	b.WriteString("{\n")
	b.WriteString("  \"scenes\": [\n")
	b.WriteString("    {\n")
	b.WriteString("      \"text\": \"场景正文（保持原文语言，不要翻译）\",\n")
	b.WriteString("      \"image_hint\": \"该场景画面的补充提示（没有则为空字符串）\",\n")
	b.WriteString("      \"voice_hint\": \"旁白语气提示（没有则为空字符串）\",\n")
	b.WriteString("      \"voice_script\": \"该场景可直接朗读的台词（没有则为空字符串）\",\n")
	b.WriteString("      \"sfx_hint\": \"音效提示（没有则为空字符串）\"\n")
	b.WriteString("    }\n")
	b.WriteString("  ]\n")
	b.WriteString("}\n\n")

	b.WriteString("【voice_script 要求】\n")
	b.WriteString("1. 只包含可直接朗读的旁白/台词，不包含舞台指示、标签或括号注释\n")
	b.WriteString("2. 按顺序连起来朗读时应是连贯、不重复的一段叙述：\n")
	b.WriteString("   不要在每个场景重复同样的自我介绍，人称和时态在所有场景间保持一致\n\n")

	b.WriteString("【文本】\n")
	b.WriteString(text)

	return b.String()
}
