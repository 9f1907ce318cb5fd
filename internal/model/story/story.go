package story

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoryStatus 故事生成任务状态
type StoryStatus string

const (
	StatusPending    StoryStatus = "pending"    // 已创建未开始
	StatusProcessing StoryStatus = "processing" // 生成中
	StatusCompleted  StoryStatus = "completed"  // 生成完成
	StatusFailed     StoryStatus = "failed"     // 生成失败
)

// Story 故事视频生成记录
// 一次生成请求对应一条记录：原文 -> 分镜 -> 图片/音频 -> 最终视频
type Story struct {
	ID           string      `bson:"id" json:"id"`                                           // 故事ID（UUID）
	Title        string      `bson:"title,omitempty" json:"title,omitempty"`                 // 标题（可选）
	Text         string      `bson:"text" json:"text"`                                       // 原始文本
	Style        string      `bson:"style" json:"style"`                                     // 实际使用的视觉风格
	SceneCount   int         `bson:"scene_count" json:"scene_count"`                         // 场景数
	Scenes       []Scene     `bson:"scenes,omitempty" json:"scenes,omitempty"`               // 各场景生成结果
	VideoKey     string      `bson:"video_key,omitempty" json:"video_key,omitempty"`         // 最终视频的存储 key
	VideoURL     string      `bson:"video_url,omitempty" json:"video_url,omitempty"`         // 最终视频的下载链接
	Duration     float64     `bson:"duration" json:"duration"`                               // 最终视频时长（秒）
	Status       StoryStatus `bson:"status" json:"status"`                                   // 状态：pending, processing, completed, failed
	ErrorMessage string      `bson:"error_message,omitempty" json:"error_message,omitempty"` // 错误信息
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updated_at"`
}

// Scene 单个场景的生成结果
type Scene struct {
	Sequence    int     `bson:"sequence" json:"sequence"`                             // 场景序号（从1开始）
	Text        string  `bson:"text" json:"text"`                                     // 场景正文
	ImagePrompt string  `bson:"image_prompt,omitempty" json:"image_prompt,omitempty"` // 实际使用的文生图提示词
	VoiceScript string  `bson:"voice_script,omitempty" json:"voice_script,omitempty"` // 实际朗读的台词
	Duration    float64 `bson:"duration" json:"duration"`                             // 场景音频时长（秒），探测失败时为 0
	ImageKey    string  `bson:"image_key,omitempty" json:"image_key,omitempty"`       // 场景图片的存储 key（保留中间产物时）
	AudioKey    string  `bson:"audio_key,omitempty" json:"audio_key,omitempty"`       // 场景音频的存储 key（保留中间产物时）
}

// GenerationOptions 单次生成的可选参数
// ImageSize / Voice / Tempo 为空时回退到进程配置的默认值
type GenerationOptions struct {
	Title           string   `json:"title"`             // 标题（可选）
	Style           string   `json:"style"`             // 视觉风格，空则自动推断
	MaxScenes       int      `json:"max_scenes"`        // 场景数上限，<=0 不限制
	ImageSize       string   `json:"image_size"`        // 图片尺寸（如 1024x576）
	Voice           string   `json:"voice"`             // TTS 声音标识
	Tempo           string   `json:"tempo"`             // 语速档位：slow, normal, fast
	ReferenceImages [][]byte `json:"-"`                 // 基准参考图（二进制）
	ReferencePaths  []string `json:"reference_paths"`   // 基准参考图（本地路径）
	ReferenceURLs   []string `json:"reference_urls"`    // 基准参考图（HTTP 链接）
	KeepSceneAssets bool     `json:"keep_scene_assets"` // 是否上传并保留场景级图片/音频
}

// Collection 返回集合名称
func (s *Story) Collection() string {
	return "stories"
}

// EnsureIndexes 创建和维护索引
func (s *Story) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
