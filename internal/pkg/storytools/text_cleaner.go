package storytools

import (
	"regexp"
	"strings"
)

// 文本清洗相关的预编译正则
// 朗读台词中常见的「舞台指示」类噪声：括号注释、画面/音效标签、说话人前缀
var (
	// bracketAsidePattern 各类括号包裹的旁注（全角/半角圆括号、方括号、方头括号、花括号）
	bracketAsidePattern = regexp.MustCompile(`（[^（）]*）|\([^()]*\)|［[^［］]*］|\[[^\[\]]*\]|【[^【】]*】|\{[^{}]*\}`)

	// nonSpeechLinePattern 整行丢弃的非语音行：画面描述、音效、镜头指示等
	nonSpeechLinePattern = regexp.MustCompile(`^\s*(?:画面|映像|背景|場面|シーン|カット|効果音|SE|SFX|BGM|音楽|Camera|カメラ|Visual|Scene|Shot|Sound)\s*[:：]`)

	// speechLabelPattern 行首的说话人/旁白标签，标签本身剥离、正文保留
	speechLabelPattern = regexp.MustCompile(`^\s*(?:ナレーション|ナレーター|旁白|语音|セリフ|台詞|Narration|Narrator|Voice|VO)\s*[:：]\s*`)

	// repeatedTerminalPattern 连续重复的句末标点，折叠为单个
	repeatedTerminalPattern = regexp.MustCompile(`([。．！？!?])[。．！？!?]+`)

	// sentenceSplitPattern 句子切分：按句末标点（含其后的引号闭合）断句
	sentenceSplitPattern = regexp.MustCompile(`[^。．！？!?]*[。．！？!?]+[」』”"]*|[^。．！？!?]+$`)

	// asciiLineEndPattern 行尾为可打印 ASCII 的行，跨行合并时需要补一个空格
	asciiLineEndPattern = regexp.MustCompile(`[\x21-\x7E]$`)
)

// CleanVoiceScript 将台词清洗为可直接送入 TTS 的纯语音文本
// 清洗是确定性的，不依赖 LLM：
//  1. 删除所有括号旁注（（…）(…)［…］[…]【…】{…}）
//  2. 整行丢弃画面描述 / 音效 / 镜头指示等非语音行
//  3. 剥离行首的说话人标签（ナレーション：、Narrator: 等），保留正文
//  4. 截断为最多两句，避免单场景音频过长
//  5. 折叠连续重复的句末标点
//
// 返回空字符串表示清洗后没有可朗读内容，调用方应回退到场景正文
func CleanVoiceScript(text string) string {
	if text == "" {
		return ""
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = bracketAsidePattern.ReplaceAllString(line, "")
		if nonSpeechLinePattern.MatchString(line) {
			continue
		}
		line = speechLabelPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}

	cleaned := joinLines(kept)
	cleaned = repeatedTerminalPattern.ReplaceAllString(cleaned, "$1")
	cleaned = truncateSentences(cleaned, 2)

	return strings.TrimSpace(cleaned)
}

// joinLines 合并清洗后保留的各行
// 上一行以拉丁字母等 ASCII 结尾时补一个空格，CJK 文本直接相连
func joinLines(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 && asciiLineEndPattern.MatchString(lines[i-1]) {
			b.WriteString(" ")
		}
		b.WriteString(line)
	}
	return b.String()
}

// truncateSentences 按句末标点截断，最多保留 max 句
func truncateSentences(text string, max int) string {
	if max <= 0 {
		return text
	}

	sentences := sentenceSplitPattern.FindAllString(text, -1)
	if len(sentences) <= max {
		return text
	}

	return strings.Join(sentences[:max], "")
}
