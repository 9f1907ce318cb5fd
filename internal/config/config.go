package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Image   ImageConfig   `mapstructure:"image"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Video   VideoConfig   `mapstructure:"video"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig LLM 服务配置（分镜拆分 / 风格决策 / 提示词生成）
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// ImageConfig 图片生成配置
type ImageConfig struct {
	Provider    string `mapstructure:"provider"` // openai（兼容接口，支持参照图）, ark
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	DefaultSize string `mapstructure:"default_size"` // 默认: 1024x576
}

// TTSConfig 语音合成配置
type TTSConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Voice   string `mapstructure:"voice"`  // 声音标识
	Format  string `mapstructure:"format"` // mp3, wav, flac
	Tempo   string `mapstructure:"tempo"`  // slow, normal, fast
}

// VideoConfig 视频合成配置（FFmpeg）
type VideoConfig struct {
	FPS             int    `mapstructure:"fps"`
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	VideoBitrate    string `mapstructure:"video_bitrate"`
	AudioBitrate    string `mapstructure:"audio_bitrate"`
	PadColor        string `mapstructure:"pad_color"`
	WorkDir         string `mapstructure:"work_dir"`          // 分段/合并输出目录
	KeepSceneAssets bool   `mapstructure:"keep_scene_assets"` // 保留每个场景的图片/音频（用于检查）
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// 允许的 TTS 输出格式
var validTTSFormats = map[string]bool{"mp3": true, "wav": true, "flac": true}

// 允许的语速档位
var validTempos = map[string]bool{"": true, "slow": true, "normal": true, "fast": true}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if !validTTSFormats[c.TTS.Format] {
		return fmt.Errorf("invalid tts format %q, must be mp3/wav/flac", c.TTS.Format)
	}
	if !validTempos[c.TTS.Tempo] {
		return fmt.Errorf("invalid tts tempo %q, must be slow/normal/fast", c.TTS.Tempo)
	}

	if c.Video.FPS <= 0 {
		return errors.New("video fps must be positive")
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video resolution must be positive")
	}

	return nil
}
