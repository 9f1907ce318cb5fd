package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAITTSConfig OpenAI 兼容语音合成接口配置
type OpenAITTSConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（必需，如 https://api.openai.com/v1）
	Model   string // 模型名称（必需，如 gpt-4o-mini-tts）
	Timeout time.Duration
}

// OpenAITTSProvider OpenAI 兼容的语音合成提供者
// 调用 /audio/speech 接口，响应体即音频二进制
// 实现了 storytools.TTSProvider 接口
type OpenAITTSProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAITTSProvider 创建 OpenAI 兼容语音合成提供者
func NewOpenAITTSProvider(cfg OpenAITTSConfig) (*OpenAITTSProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tts API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tts API base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("tts model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OpenAITTSProvider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// speechRequest /audio/speech 请求体
type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// ttsErrorResponse 失败时的 JSON 错误响应
type ttsErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Synthesize 将文本合成为音频，返回音频二进制
// format 为 mp3 / wav / flac 之一
// 实现了 storytools.TTSProvider 接口
func (p *OpenAITTSProvider) Synthesize(ctx context.Context, text, voice, format string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("tts input text is empty")
	}

	payload, err := json.Marshal(speechRequest{
		Model:          p.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ttsErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("tts API error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("tts API error: status %d", resp.StatusCode)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("empty audio in tts response")
	}

	return body, nil
}
