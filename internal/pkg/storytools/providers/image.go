package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"storyreel/internal/pkg/storytools"
)

// OpenAIImageConfig OpenAI 兼容图片生成接口配置
type OpenAIImageConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（必需，如 https://api.openai.com/v1）
	Model   string // 模型名称（必需）
	Timeout time.Duration
}

// OpenAIImageProvider OpenAI 兼容的图片生成提供者（默认使用）
// 调用 /images/generations 接口；参考图以 data URL 形式随请求传入，
// 供支持图生图的兼容网关做角色/配色一致性约束
// 实现了 storytools.ImageProvider 接口
type OpenAIImageProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIImageProvider 创建 OpenAI 兼容图片生成提供者
func NewOpenAIImageProvider(cfg OpenAIImageConfig) (*OpenAIImageProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("image API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("image API base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("image model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIImageProvider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// imageGenerationRequest /images/generations 请求体
type imageGenerationRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	Size           string   `json:"size,omitempty"`
	N              int      `json:"n"`
	ResponseFormat string   `json:"response_format"`
	Image          []string `json:"image,omitempty"` // 参考图 data URL 列表
}

// imageGenerationResponse /images/generations 响应体
type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate 生成图片
// refs 为参考图二进制列表，嵌入请求后由模型保持风格/角色一致
// 实现了 storytools.ImageProvider 接口
func (p *OpenAIImageProvider) Generate(ctx context.Context, prompt, size string, refs [][]byte) ([]byte, error) {
	reqBody := imageGenerationRequest{
		Model:          p.model,
		Prompt:         prompt,
		Size:           storytools.NormalizeImageSize(size),
		N:              1,
		ResponseFormat: "b64_json",
	}
	for _, ref := range refs {
		if len(ref) == 0 {
			continue
		}
		reqBody.Image = append(reqBody.Image, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(ref))
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image response: %w", err)
	}

	var result imageGenerationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse image response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return nil, fmt.Errorf("image API error (status %d): %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("image API error: status %d", resp.StatusCode)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no image data in response")
	}

	first := result.Data[0]
	if first.B64JSON != "" {
		imageData, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
		}
		return imageData, nil
	}
	if first.URL != "" {
		return p.download(ctx, first.URL)
	}

	return nil, fmt.Errorf("image response has neither b64_json nor url")
}

// download 拉取 url 形式返回的图片
func (p *OpenAIImageProvider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ArkImageConfig Ark 图片生成配置
type ArkImageConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（可选，默认: https://ark.cn-beijing.volces.com/api/v3）
	Model   string // 模型名称（可选，默认: doubao-seedream-3-0-t2i-250415）
}

// ArkImageProvider Ark 图片生成提供者
// 调用火山引擎 Ark 的 images.generate 接口
// SDK 暂不支持参考图，refs 会被忽略
// 实现了 storytools.ImageProvider 接口
type ArkImageProvider struct {
	client *arkruntime.Client
	model  string
}

// NewArkImageProvider 创建 Ark 图片生成提供者
func NewArkImageProvider(cfg ArkImageConfig) (*ArkImageProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "doubao-seedream-3-0-t2i-250415"
	}

	var opts []arkruntime.ConfigOption
	if cfg.BaseURL != "" {
		opts = append(opts, arkruntime.WithBaseUrl(cfg.BaseURL))
	}

	return &ArkImageProvider{
		client: arkruntime.NewClientWithApiKey(cfg.APIKey, opts...),
		model:  modelName,
	}, nil
}

// Generate 生成图片
// 实现了 storytools.ImageProvider 接口
func (p *ArkImageProvider) Generate(ctx context.Context, prompt, size string, refs [][]byte) ([]byte, error) {
	if len(refs) > 0 {
		log.Debug().Int("refs", len(refs)).Msg("ark image provider does not support reference images, ignoring")
	}

	normalized := storytools.NormalizeImageSize(size)
	responseFormat := "b64_json"
	watermark := false

	input := arkmodel.GenerateImagesRequest{
		Model:          p.model,
		Prompt:         prompt,
		Size:           &normalized,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	}

	output, err := p.client.GenerateImages(ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("failed to call Ark GenerateImages API")
		return nil, fmt.Errorf("Ark GenerateImages API call failed: %w", err)
	}

	if len(output.Data) == 0 {
		return nil, fmt.Errorf("no image data in response")
	}
	first := output.Data[0]
	if first.B64Json == nil {
		return nil, fmt.Errorf("no b64_json in response data")
	}

	imageData, err := base64.StdEncoding.DecodeString(*first.B64Json)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
	}

	return imageData, nil
}
