package storytools

import (
	"regexp"
	"strings"
)

// markdownFencePattern 匹配 LLM 输出中包裹内容的 markdown 代码块标记
var markdownFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\n?```$")

// CleanJSONContent 去除 LLM 输出中的 markdown 代码块标记和首尾空白
// 模型经常无视指令把 JSON 包在 ```json ... ``` 中，解析前统一剥掉
func CleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if m := markdownFencePattern.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}
	return content
}
