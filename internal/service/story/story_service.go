package story

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"storyreel/internal/config"
	"storyreel/internal/model/story"
	"storyreel/internal/pkg/cache"
	"storyreel/internal/pkg/ffmpeg"
	"storyreel/internal/pkg/id"
	"storyreel/internal/pkg/storage"
	"storyreel/internal/pkg/storytools"
	storyrepo "storyreel/internal/repository/story"
)

// 参考图 HTTP 拉取与预签名链接的默认时限
const (
	refFetchTimeout      = 5 * time.Second
	presignDefaultExpiry = 24 * time.Hour
)

// videoURLCacheKey 预签名链接的缓存 key
func videoURLCacheKey(storyID string) string {
	return "storyreel:video_url:" + storyID
}

// Composer 视频合成器接口
// 生产实现为 ffmpeg.Client；单测用桩实现替换
type Composer interface {
	ProbeAudioDuration(ctx context.Context, audioPath string) (float64, bool)
	ComposeSceneVideo(ctx context.Context, imagePath, audioPath, outputPath string, opts ffmpeg.ComposeOptions) error
	ConcatSegments(ctx context.Context, segmentPaths []string, outputPath string) error
	AdjustAudioTempo(ctx context.Context, inputPath, outputPath string, rate float64) error
}

// StoryService 故事视频生成服务
// 编排完整管线：分镜 -> 逐场景生成图片与旁白音频 -> 合成分段视频 -> 连结 -> 上传
type StoryService struct {
	cfg *config.Config

	splitter      *storytools.SceneSplitter
	styleResolver *storytools.StyleResolver
	promptBuilder *storytools.ImagePromptBuilder
	voiceGen      *storytools.VoiceScriptGenerator

	imageProvider storytools.ImageProvider
	ttsProvider   storytools.TTSProvider
	composer      Composer
	store         storage.Storage
	repo          storyrepo.StoryRepository // 可为 nil（纯 CLI 模式不落库）
	cache         *cache.RedisCache         // 可为 nil

	retry storytools.RetryPolicy
}

// NewStoryService 创建故事视频生成服务
// repo 与 cache 允许为 nil，此时跳过落库与链接缓存
func NewStoryService(
	cfg *config.Config,
	llm storytools.LLMProvider,
	image storytools.ImageProvider,
	tts storytools.TTSProvider,
	composer Composer,
	store storage.Storage,
	repo storyrepo.StoryRepository,
	redisCache *cache.RedisCache,
) *StoryService {
	return &StoryService{
		cfg:           cfg,
		splitter:      storytools.NewSceneSplitter(llm),
		styleResolver: storytools.NewStyleResolver(llm),
		promptBuilder: storytools.NewImagePromptBuilder(llm),
		voiceGen:      storytools.NewVoiceScriptGenerator(llm),
		imageProvider: image,
		ttsProvider:   tts,
		composer:      composer,
		store:         store,
		repo:          repo,
		cache:         redisCache,
		retry:         storytools.DefaultRetryPolicy,
	}
}

// GenerateVideo 从一段文本生成完整的叙事视频
// 场景严格按顺序处理；任一场景在重试耗尽后仍失败则整次生成失败
func (s *StoryService) GenerateVideo(ctx context.Context, text string, opts story.GenerationOptions) (*story.Story, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("story text is empty")
	}

	rec := &story.Story{
		ID:     id.New(),
		Title:  opts.Title,
		Text:   text,
		Status: story.StatusProcessing,
	}
	s.createRecord(ctx, rec)

	result, err := s.generate(ctx, rec, text, opts)
	if err != nil {
		rec.Status = story.StatusFailed
		rec.ErrorMessage = err.Error()
		s.updateStatus(ctx, rec.ID, story.StatusFailed, err.Error())
		return nil, err
	}

	result.Status = story.StatusCompleted
	s.updateResult(ctx, result)
	return result, nil
}

// generate 实际执行生成管线，rec 在过程中被逐步填充
func (s *StoryService) generate(ctx context.Context, rec *story.Story, text string, opts story.GenerationOptions) (*story.Story, error) {
	workDir := filepath.Join(s.workDir(), rec.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	temps := &ffmpeg.TempSet{}
	defer temps.Cleanup()

	// 分镜与风格决策
	scenes := s.splitter.Split(ctx, text, opts.MaxScenes)
	style := s.styleResolver.Resolve(ctx, text, opts.Style)
	rec.Style = style
	rec.SceneCount = len(scenes)

	log.Info().
		Str("story_id", rec.ID).
		Int("scenes", len(scenes)).
		Str("style", style).
		Msg("story split into scenes")

	pool := NewReferencePool(s.collectBaseRefs(ctx, opts))
	composeOpts := s.composeOptions()

	// 请求级参数优先，空值回退到配置默认
	imageSize := opts.ImageSize
	if imageSize == "" {
		imageSize = s.cfg.Image.DefaultSize
	}
	voice := opts.Voice
	if voice == "" {
		voice = s.cfg.TTS.Voice
	}
	tempo := opts.Tempo
	if tempo == "" {
		tempo = s.cfg.TTS.Tempo
	}
	tempoRate := ffmpeg.TempoRate(tempo)

	segments := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		seq := i + 1

		segPath, detail, err := s.generateScene(ctx, rec.ID, seq, scene, style, pool, temps, workDir, composeOpts, imageSize, voice, tempoRate, opts.KeepSceneAssets)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", seq, err)
		}

		segments = append(segments, segPath)
		rec.Scenes = append(rec.Scenes, detail)
	}

	// 连结分段；单场景时直接采用该分段
	finalPath := filepath.Join(workDir, "final.mp4")
	if len(segments) == 1 {
		if err := os.Rename(segments[0], finalPath); err != nil {
			return nil, fmt.Errorf("failed to finalize single segment: %w", err)
		}
	} else {
		if err := s.composer.ConcatSegments(ctx, segments, finalPath); err != nil {
			return nil, fmt.Errorf("failed to concat segments: %w", err)
		}
	}

	if duration, ok := s.composer.ProbeAudioDuration(ctx, finalPath); ok {
		rec.Duration = duration
	}

	// 上传并签发下载链接
	videoKey := fmt.Sprintf("stories/%s/final.mp4", rec.ID)
	if err := s.upload(ctx, videoKey, finalPath, "video/mp4"); err != nil {
		return nil, err
	}
	rec.VideoKey = videoKey
	rec.VideoURL = s.presign(ctx, rec.ID, videoKey)

	if !s.cfg.Video.KeepSceneAssets && !opts.KeepSceneAssets {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove work dir")
		}
	}

	log.Info().
		Str("story_id", rec.ID).
		Str("video_key", videoKey).
		Float64("duration", rec.Duration).
		Int("scenes", rec.SceneCount).
		Msg("story video generated")

	return rec, nil
}

// generateScene 生成单个场景：图片 -> 台词 -> 音频 -> 变速 -> 分段视频
func (s *StoryService) generateScene(
	ctx context.Context,
	storyID string,
	seq int,
	scene storytools.SceneSpec,
	style string,
	pool *ReferencePool,
	temps *ffmpeg.TempSet,
	workDir string,
	composeOpts ffmpeg.ComposeOptions,
	imageSize string,
	voice string,
	tempoRate float64,
	keepAssets bool,
) (string, story.Scene, error) {
	detail := story.Scene{Sequence: seq, Text: scene.Text}

	// 图片
	styleHint := storytools.BuildStyleHint(style, seq)
	prompt := s.promptBuilder.Build(ctx, scene, styleHint)
	detail.ImagePrompt = prompt

	var imageData []byte
	err := s.retry.Do(ctx, func() error {
		var genErr error
		imageData, genErr = s.imageProvider.Generate(ctx, prompt, imageSize, pool.Refs())
		return genErr
	})
	if err != nil {
		return "", detail, fmt.Errorf("image generation failed: %w", err)
	}
	pool.AddRecent(imageData)

	// 台词与音频
	script := s.voiceGen.ScriptFor(ctx, scene)
	detail.VoiceScript = script

	var audioData []byte
	err = s.retry.Do(ctx, func() error {
		var synthErr error
		audioData, synthErr = s.ttsProvider.Synthesize(ctx, script, voice, s.audioFormat())
		return synthErr
	})
	if err != nil {
		return "", detail, fmt.Errorf("tts failed: %w", err)
	}

	// 落成临时文件，交给合成器
	imagePath, err := temps.WriteTemp("scene_*.png", imageData)
	if err != nil {
		return "", detail, fmt.Errorf("failed to write image temp: %w", err)
	}
	audioPath, err := temps.WriteTemp("scene_*."+s.audioFormat(), audioData)
	if err != nil {
		return "", detail, fmt.Errorf("failed to write audio temp: %w", err)
	}

	// 语速调节
	if tempoRate != 1.0 {
		adjusted := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "_tempo" + filepath.Ext(audioPath)
		if err := s.composer.AdjustAudioTempo(ctx, audioPath, adjusted, tempoRate); err != nil {
			log.Warn().Err(err).Int("scene", seq).Msg("tempo adjustment failed, using original audio")
		} else {
			temps.Track(adjusted)
			audioPath = adjusted
		}
	}

	if duration, ok := s.composer.ProbeAudioDuration(ctx, audioPath); ok {
		detail.Duration = duration
	}

	segPath := filepath.Join(workDir, fmt.Sprintf("scene_%03d.mp4", seq))
	if err := s.composer.ComposeSceneVideo(ctx, imagePath, audioPath, segPath, composeOpts); err != nil {
		return "", detail, fmt.Errorf("compose failed: %w", err)
	}

	// 可选保留场景级产物
	if keepAssets || s.cfg.Video.KeepSceneAssets {
		imageKey := fmt.Sprintf("stories/%s/scenes/scene_%03d.png", storyID, seq)
		if err := s.upload(ctx, imageKey, imagePath, "image/png"); err != nil {
			log.Warn().Err(err).Int("scene", seq).Msg("failed to upload scene image")
		} else {
			detail.ImageKey = imageKey
		}

		audioKey := fmt.Sprintf("stories/%s/scenes/scene_%03d.%s", storyID, seq, s.audioFormat())
		if err := s.upload(ctx, audioKey, audioPath, audioContentType(s.audioFormat())); err != nil {
			log.Warn().Err(err).Int("scene", seq).Msg("failed to upload scene audio")
		} else {
			detail.AudioKey = audioKey
		}
	}

	log.Info().
		Str("story_id", storyID).
		Int("scene", seq).
		Float64("duration", detail.Duration).
		Msg("scene generated")

	return segPath, detail, nil
}

// collectBaseRefs 收集基准参考图：二进制 + 本地路径 + HTTP 链接
// 单张失败只告警不阻断，总量截断由 ReferencePool 负责
func (s *StoryService) collectBaseRefs(ctx context.Context, opts story.GenerationOptions) [][]byte {
	refs := make([][]byte, 0, len(opts.ReferenceImages)+len(opts.ReferencePaths)+len(opts.ReferenceURLs))
	refs = append(refs, opts.ReferenceImages...)

	for _, path := range opts.ReferencePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to read reference image")
			continue
		}
		refs = append(refs, data)
	}

	if len(opts.ReferenceURLs) > 0 {
		client := &http.Client{Timeout: refFetchTimeout}
		for _, url := range opts.ReferenceURLs {
			data, err := fetchReferenceImage(ctx, client, url)
			if err != nil {
				log.Warn().Err(err).Str("url", url).Msg("failed to fetch reference image")
				continue
			}
			refs = append(refs, data)
		}
	}

	return refs
}

// fetchReferenceImage 拉取单张 HTTP 参考图
func fetchReferenceImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// upload 将本地文件上传到存储
func (s *StoryService) upload(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := s.store.Upload(ctx, key, f, contentType); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// presign 签发下载链接，结果写入缓存；失败只告警
func (s *StoryService) presign(ctx context.Context, storyID, key string) string {
	url, err := s.store.GetPresignedDownloadURL(ctx, key, presignDefaultExpiry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to presign download URL")
		return ""
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, videoURLCacheKey(storyID), url, presignDefaultExpiry); err != nil {
			log.Warn().Err(err).Str("story_id", storyID).Msg("failed to cache video URL")
		}
	}
	return url
}

// GetStory 查询故事记录，优先用缓存中的下载链接
func (s *StoryService) GetStory(ctx context.Context, storyID string) (*story.Story, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("story persistence is not enabled")
	}

	rec, err := s.repo.FindByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("story not found: %w", err)
	}

	if rec.VideoKey != "" {
		var cached string
		if s.cache != nil && s.cache.Get(ctx, videoURLCacheKey(storyID), &cached) == nil && cached != "" {
			rec.VideoURL = cached
		} else {
			rec.VideoURL = s.presign(ctx, storyID, rec.VideoKey)
		}
	}
	return rec, nil
}

// ListStories 查询最近创建的故事记录
func (s *StoryService) ListStories(ctx context.Context, limit int) ([]*story.Story, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("story persistence is not enabled")
	}
	return s.repo.FindRecent(ctx, limit)
}

// composeOptions 将视频配置映射为合成参数，缺省值取默认参数
func (s *StoryService) composeOptions() ffmpeg.ComposeOptions {
	opts := ffmpeg.DefaultComposeOptions()
	if s.cfg.Video.FPS > 0 {
		opts.FPS = s.cfg.Video.FPS
	}
	if s.cfg.Video.Width > 0 {
		opts.Width = s.cfg.Video.Width
	}
	if s.cfg.Video.Height > 0 {
		opts.Height = s.cfg.Video.Height
	}
	if s.cfg.Video.VideoBitrate != "" {
		opts.VideoBitrate = s.cfg.Video.VideoBitrate
	}
	if s.cfg.Video.AudioBitrate != "" {
		opts.AudioBitrate = s.cfg.Video.AudioBitrate
	}
	if s.cfg.Video.PadColor != "" {
		opts.PadColor = s.cfg.Video.PadColor
	}
	return opts
}

// workDir 分段与成品的工作目录
func (s *StoryService) workDir() string {
	if s.cfg.Video.WorkDir != "" {
		return s.cfg.Video.WorkDir
	}
	return filepath.Join(os.TempDir(), "storyreel")
}

// audioFormat TTS 输出格式，默认 mp3
func (s *StoryService) audioFormat() string {
	if s.cfg.TTS.Format != "" {
		return s.cfg.TTS.Format
	}
	return "mp3"
}

// audioContentType 音频格式对应的 Content-Type
func audioContentType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}

// createRecord / updateStatus / updateResult 落库操作，repo 为 nil 时跳过

func (s *StoryService) createRecord(ctx context.Context, rec *story.Story) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		log.Warn().Err(err).Str("story_id", rec.ID).Msg("failed to persist story record")
	}
}

func (s *StoryService) updateStatus(ctx context.Context, storyID string, status story.StoryStatus, errorMsg string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateStatus(ctx, storyID, status, errorMsg); err != nil {
		log.Warn().Err(err).Str("story_id", storyID).Msg("failed to update story status")
	}
}

func (s *StoryService) updateResult(ctx context.Context, rec *story.Story) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateResult(ctx, rec.ID, rec); err != nil {
		log.Warn().Err(err).Str("story_id", rec.ID).Msg("failed to update story result")
	}
}
