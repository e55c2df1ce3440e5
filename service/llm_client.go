package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Beenunn17/ReimaginedInd2/config"
)

var (
	ErrLLMNotConfigured = errors.New("llm endpoint is not configured")
	ErrLLMUpstream      = errors.New("llm upstream request failed")
)

// LLMClient 文本生成服务的 HTTP 客户端。生成模型本身是外部协作方，
// 这里只负责一问一答。
type LLMClient struct {
	Endpoint string
	Model    string
	Project  string
	Location string

	HTTPClient *http.Client
}

func NewLLMClient() *LLMClient {
	client := &LLMClient{
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
	if config.AppConfig != nil {
		client.Endpoint = config.AppConfig.LLM.Endpoint
		client.Model = config.AppConfig.LLM.Model
		client.Project = config.AppConfig.LLM.Project
		client.Location = config.AppConfig.LLM.Location
	}
	return client
}

type generateRequest struct {
	Model    string `json:"model"`
	Project  string `json:"project,omitempty"`
	Location string `json:"location,omitempty"`
	Prompt   string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// GenerateContent 发送 prompt 并返回模型的自由文本输出
func (c *LLMClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.Endpoint) == "" {
		return "", ErrLLMNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Model:    c.Model,
		Project:  c.Project,
		Location: c.Location,
		Prompt:   prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrLLMUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrLLMUpstream, resp.StatusCode, snippet(string(data)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrLLMUpstream, err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrLLMUpstream, parsed.Error)
	}
	return parsed.Text, nil
}
