package story

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	storymodel "storyreel/internal/model/story"
	pkghttp "storyreel/internal/pkg/http"
	"storyreel/internal/pkg/id"
	storysvc "storyreel/internal/service/story"
)

// Handler 故事视频接口处理器
type Handler struct {
	svc *storysvc.StoryService
}

// NewHandler 创建故事视频接口处理器
func NewHandler(svc *storysvc.StoryService) *Handler {
	return &Handler{svc: svc}
}

// GenerateStoryRequest 生成故事视频请求
type GenerateStoryRequest struct {
	Text            string   `json:"text" binding:"required"` // 原始文本（必填）
	Title           string   `json:"title"`                   // 标题（可选）
	Style           string   `json:"style"`                   // 视觉风格（可选，空则自动推断）
	MaxScenes       int      `json:"max_scenes"`              // 场景数上限（可选）
	ImageSize       string   `json:"image_size"`              // 图片尺寸（可选，空则用配置默认）
	Voice           string   `json:"voice"`                   // TTS 声音标识（可选）
	Tempo           string   `json:"tempo"`                   // 语速档位 slow/normal/fast（可选）
	ReferenceImages []string `json:"reference_images"`        // 基准参考图（base64，可选）
	ReferencePaths  []string `json:"reference_paths"`         // 基准参考图本地路径（可选）
	ReferenceURLs   []string `json:"reference_urls"`          // 基准参考图链接（可选）
	KeepSceneAssets bool     `json:"keep_scene_assets"`       // 是否保留场景级产物
}

// decodeReferenceImages 解码 base64 参考图，非法条目跳过不阻断
func decodeReferenceImages(encoded []string) [][]byte {
	images := make([][]byte, 0, len(encoded))
	for _, item := range encoded {
		data, err := base64.StdEncoding.DecodeString(item)
		if err != nil || len(data) == 0 {
			log.Warn().Err(err).Msg("skipping invalid base64 reference image")
			continue
		}
		images = append(images, data)
	}
	return images
}

// SceneInfo 场景结果 DTO
type SceneInfo struct {
	Sequence    int     `json:"sequence"`               // 场景序号
	Text        string  `json:"text"`                   // 场景正文
	ImagePrompt string  `json:"image_prompt,omitempty"` // 文生图提示词
	VoiceScript string  `json:"voice_script,omitempty"` // 朗读台词
	Duration    float64 `json:"duration"`               // 音频时长（秒）
	ImageKey    string  `json:"image_key,omitempty"`    // 图片存储 key
	AudioKey    string  `json:"audio_key,omitempty"`    // 音频存储 key
}

// StoryInfo 故事记录 DTO
type StoryInfo struct {
	ID           string      `json:"id"`                      // 故事ID
	Title        string      `json:"title,omitempty"`         // 标题
	Style        string      `json:"style"`                   // 视觉风格
	SceneCount   int         `json:"scene_count"`             // 场景数
	Scenes       []SceneInfo `json:"scenes,omitempty"`        // 场景明细
	VideoURL     string      `json:"video_url,omitempty"`     // 视频下载链接
	Duration     float64     `json:"duration"`                // 视频时长（秒）
	Status       string      `json:"status"`                  // 状态
	ErrorMessage string      `json:"error_message,omitempty"` // 错误信息
	CreatedAt    string      `json:"created_at"`              // 创建时间
	UpdatedAt    string      `json:"updated_at"`              // 更新时间
}

// toStoryInfo 将 Story 实体转换为 StoryInfo DTO
func toStoryInfo(rec *storymodel.Story) StoryInfo {
	scenes := make([]SceneInfo, len(rec.Scenes))
	for i, sc := range rec.Scenes {
		scenes[i] = SceneInfo{
			Sequence:    sc.Sequence,
			Text:        sc.Text,
			ImagePrompt: sc.ImagePrompt,
			VoiceScript: sc.VoiceScript,
			Duration:    sc.Duration,
			ImageKey:    sc.ImageKey,
			AudioKey:    sc.AudioKey,
		}
	}
	return StoryInfo{
		ID:           rec.ID,
		Title:        rec.Title,
		Style:        rec.Style,
		SceneCount:   rec.SceneCount,
		Scenes:       scenes,
		VideoURL:     rec.VideoURL,
		Duration:     rec.Duration,
		Status:       string(rec.Status),
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}
}

// Generate 从文本生成故事视频
// @Summary      生成故事视频
// @Description  将一段叙事文本拆分为场景，逐场景生成图片与旁白音频并合成为完整视频。同步接口，生成完成后返回结果。
// @Tags         故事视频
// @Accept       json
// @Produce      json
// @Param        request  body      GenerateStoryRequest  true  "生成请求"
// @Success      200      {object}  http.SuccessResponse{data=StoryInfo}  "生成成功"
// @Failure      400      {object}  http.ErrorResponse  "参数错误"
// @Failure      500      {object}  http.ErrorResponse  "生成失败"
// @Router       /api/v1/stories/generate [post]
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkghttp.NewErrorResponse(40000, "invalid request", err.Error()))
		return
	}

	rec, err := h.svc.GenerateVideo(c.Request.Context(), req.Text, storymodel.GenerationOptions{
		Title:           req.Title,
		Style:           req.Style,
		MaxScenes:       req.MaxScenes,
		ImageSize:       req.ImageSize,
		Voice:           req.Voice,
		Tempo:           req.Tempo,
		ReferenceImages: decodeReferenceImages(req.ReferenceImages),
		ReferencePaths:  req.ReferencePaths,
		ReferenceURLs:   req.ReferenceURLs,
		KeepSceneAssets: req.KeepSceneAssets,
	})
	if err != nil {
		log.Error().Err(err).Msg("story generation failed")
		c.JSON(http.StatusInternalServerError, pkghttp.NewErrorResponse(50000, "story generation failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, pkghttp.NewSuccessResponse("story generated", toStoryInfo(rec)))
}

// Get 查询故事记录
// @Summary      查询故事记录
// @Description  按ID查询故事生成记录及视频下载链接。
// @Tags         故事视频
// @Produce      json
// @Param        id  path      string  true  "故事ID"
// @Success      200  {object}  http.SuccessResponse{data=StoryInfo}  "查询成功"
// @Failure      404  {object}  http.ErrorResponse  "记录不存在"
// @Router       /api/v1/stories/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	storyID := c.Param("id")
	if !id.IsValid(storyID) {
		c.JSON(http.StatusBadRequest, pkghttp.NewErrorResponse(40000, "invalid story id"))
		return
	}

	rec, err := h.svc.GetStory(c.Request.Context(), storyID)
	if err != nil {
		c.JSON(http.StatusNotFound, pkghttp.NewErrorResponse(40400, "story not found", err.Error()))
		return
	}

	c.JSON(http.StatusOK, pkghttp.NewSuccessResponse("ok", toStoryInfo(rec)))
}

// List 查询最近的故事记录
// @Summary      查询故事列表
// @Description  按创建时间倒序返回最近的故事生成记录。
// @Tags         故事视频
// @Produce      json
// @Param        limit  query     int  false  "返回条数（默认20）"
// @Success      200    {object}  http.SuccessResponse{data=[]StoryInfo}  "查询成功"
// @Failure      500    {object}  http.ErrorResponse  "查询失败"
// @Router       /api/v1/stories [get]
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.svc.ListStories(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, pkghttp.NewErrorResponse(50000, "failed to list stories", err.Error()))
		return
	}

	list := make([]StoryInfo, len(records))
	for i, rec := range records {
		list[i] = toStoryInfo(rec)
	}
	c.JSON(http.StatusOK, pkghttp.NewSuccessResponse("ok", list))
}
