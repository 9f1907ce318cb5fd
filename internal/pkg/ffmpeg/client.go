package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"storyreel/internal/pkg/id"
)

// Client FFmpeg 客户端
// 用于封装 FFmpeg / FFprobe 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// ComposeOptions 单场景视频合成参数
type ComposeOptions struct {
	FPS          int    // 帧率
	Width        int    // 目标宽度
	Height       int    // 目标高度
	VideoBitrate string // 视频码率（如 2000k）
	AudioBitrate string // 音频码率（如 192k）
	PadColor     string // 填充颜色
}

// DefaultComposeOptions 默认合成参数
func DefaultComposeOptions() ComposeOptions {
	return ComposeOptions{
		FPS:          30,
		Width:        1920,
		Height:       1080,
		VideoBitrate: "2000k",
		AudioBitrate: "192k",
		PadColor:     "black",
	}
}

// probeOutput ffprobe -of json 的输出结构
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// ProbeAudioDuration 获取音频实际时长（秒，毫秒精度）
// 优先取容器（format）时长，取不到时回退到音频流自身的时长字段。
// 取不到任何时长时返回 ok=false，调用方应切换为 -shortest 策略；探测失败不视为致命错误。
func (c *Client) ProbeAudioDuration(ctx context.Context, audioPath string) (float64, bool) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type,duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		log.Warn().Err(err).Str("audio", audioPath).Msg("ffprobe failed, duration unknown")
		return 0, false
	}

	return parseProbeDuration(output)
}

// parseProbeDuration 解析 ffprobe JSON 输出中的时长
func parseProbeDuration(output []byte) (float64, bool) {
	var info probeOutput
	if err := json.Unmarshal(output, &info); err != nil {
		return 0, false
	}

	// format > duration 最可靠
	if d, err := strconv.ParseFloat(info.Format.Duration, 64); err == nil && d > 0 {
		return roundMillis(d), true
	}

	// 回退：音频流自身的 duration
	for _, st := range info.Streams {
		if st.CodecType != "audio" {
			continue
		}
		if d, err := strconv.ParseFloat(st.Duration, 64); err == nil && d > 0 {
			return roundMillis(d), true
		}
	}

	return 0, false
}

// roundMillis 舍入到毫秒精度
func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}

// composeSceneArgs 构建单场景合成的 FFmpeg 参数
// 静止画用 -loop 1 转为视频流，scale 适配目标分辨率（保持纵横比）后居中 pad，
// setsar=1 归一化像素纵横比。时长已知时用 -t 精确裁切，未知时用 -shortest。
func composeSceneArgs(imagePath, audioPath, outputPath string, opts ComposeOptions, duration float64, hasDuration bool) []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s,setsar=1",
		opts.Width, opts.Height, opts.Width, opts.Height, opts.PadColor,
	)

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(opts.FPS),
		"-i", imagePath,
		"-i", audioPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-b:v", opts.VideoBitrate,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(opts.FPS),
		"-c:a", "aac",
		"-b:a", opts.AudioBitrate,
		"-ar", "48000",
		"-ac", "2",
		"-movflags", "+faststart",
	}

	if hasDuration {
		args = append(args, "-t", fmt.Sprintf("%.3f", duration))
	} else {
		args = append(args, "-shortest")
	}

	return append(args, outputPath)
}

// ComposeSceneVideo 从一张图片和一段音频合成单场景视频
// 输出视频的播放时长与音频实际时长一致（毫秒精度）
func (c *Client) ComposeSceneVideo(ctx context.Context, imagePath, audioPath, outputPath string, opts ComposeOptions) error {
	duration, hasDuration := c.ProbeAudioDuration(ctx, audioPath)

	args := composeSceneArgs(imagePath, audioPath, outputPath, opts, duration, hasDuration)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg compose failed: %w", err)
	}

	log.Info().
		Str("image", imagePath).
		Str("audio", audioPath).
		Str("output", outputPath).
		Float64("duration", duration).
		Bool("duration_known", hasDuration).
		Msg("scene video composed")

	return nil
}

// concatListEntry 生成 concat demuxer 清单的一行
// -safe 0 允许绝对路径；单引号按 demuxer 规则转义，文件名含特殊字符也能处理
func concatListEntry(absPath string) string {
	escaped := strings.ReplaceAll(absPath, "'", `'\''`)
	return fmt.Sprintf("file '%s'\n", escaped)
}

// ConcatSegments 按输入顺序将多个同参数编码的视频段无重编码连结为一个文件
// 前提：所有输入段由 ComposeSceneVideo 以相同参数生成；参数不一致时结果未定义
func (c *Client) ConcatSegments(ctx context.Context, segmentPaths []string, outputPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("no segments to concat")
	}

	listPath := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf("concat_%s.txt", id.New()))

	file, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("create concat list file: %w", err)
	}
	defer os.Remove(listPath)

	for _, segPath := range segmentPaths {
		absPath, err := filepath.Abs(segPath)
		if err != nil {
			file.Close()
			return fmt.Errorf("get absolute path: %w", err)
		}
		if _, err := file.WriteString(concatListEntry(absPath)); err != nil {
			file.Close()
			return fmt.Errorf("write concat list: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // 使用 copy 避免重新编码
		"-movflags", "+faststart",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	log.Info().
		Int("count", len(segmentPaths)).
		Str("output", outputPath).
		Msg("segments concatenated")

	return nil
}

// tempoArgs 构建变速重编码的 FFmpeg 参数
// atempo 只改变语速不改变音高，有效范围 0.5〜2.0
func tempoArgs(inputPath, outputPath string, rate float64) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-filter:a", fmt.Sprintf("atempo=%.2f", rate),
		outputPath,
	}
}

// AdjustAudioTempo 对音频应用变速滤镜（保持音高）
func (c *Client) AdjustAudioTempo(ctx context.Context, inputPath, outputPath string, rate float64) error {
	if rate < 0.5 || rate > 2.0 {
		return fmt.Errorf("invalid tempo rate %.2f, must be within [0.5, 2.0]", rate)
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, tempoArgs(inputPath, outputPath, rate)...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg tempo adjust failed: %w", err)
	}

	return nil
}

// TempoRate 语速档位对应的倍率
func TempoRate(tempo string) float64 {
	switch tempo {
	case "slow":
		return 0.85
	case "fast":
		return 1.25
	default:
		return 1.0
	}
}
