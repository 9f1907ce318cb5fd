package storytools

import (
	"context"
)

// LLMProvider 定义了调用大模型的接口
// 具体的「如何调用大模型」由调用方通过实现此接口注入，方便单测和替换实现
type LLMProvider interface {
	// Generate 根据提示词生成文本
	//
	// Args:
	//   - ctx: 上下文
	//   - prompt: 提示词
	//
	// Returns:
	//   - text: 生成的文本
	//   - err: 错误信息
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider 图片生成提供者接口
//
// refs 为参照图（基础参照图 + 同一请求内最近生成的图片），用于维持多场景间的
// 角色设计/配色/氛围一致性；不支持参照图的实现可以忽略该参数
type ImageProvider interface {
	// Generate 生成图片，返回 PNG 二进制数据
	//
	// Args:
	//   - ctx: 上下文
	//   - prompt: 图片描述文本
	//   - size: 目标尺寸（如 "1024x576"，见 NormalizeImageSize）
	//   - refs: 参照图二进制列表（可为空）
	Generate(ctx context.Context, prompt, size string, refs [][]byte) ([]byte, error)
}

// TTSProvider 语音合成提供者接口
type TTSProvider interface {
	// Synthesize 合成语音，返回指定容器格式的音频二进制数据
	//
	// Args:
	//   - ctx: 上下文
	//   - text: 要朗读的文本（应已经过 CleanVoiceScript 清理）
	//   - voice: 声音标识
	//   - format: 容器格式（mp3/wav/flac）
	Synthesize(ctx context.Context, text, voice, format string) ([]byte, error)
}

// 图片生成支持的尺寸（纵横比・分辨率组合）
var allowedImageSizes = map[string]bool{
	// 横长
	"1024x576":  true,
	"1920x1080": true,
	// 纵长
	"576x1024":  true,
	"1080x1920": true,
	// 正方形
	"1024x1024": true,
	// 旧版互換
	"256x256":   true,
	"512x512":   true,
	"1536x1024": true,
	"1024x1536": true,
}

// NormalizeImageSize 归一化图片尺寸
// 不在支持列表中的尺寸回退为 1024x1024
func NormalizeImageSize(size string) string {
	if allowedImageSizes[size] {
		return size
	}
	return "1024x1024"
}
