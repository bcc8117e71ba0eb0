// Package vision extracts suggested event fields from poster images
// through an OpenAI-compatible vision model endpoint. Extraction output
// is advisory only: callers treat it as pre-filled form values, never
// as validated event data.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Defaults match the DashScope compatible-mode endpoint.
const (
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultModel   = "qwen-vl-plus"
)

const (
	maxResponseTokens = 1000
	temperature       = 0.1
)

// posterPrompt instructs the model to extract event fields and answer
// in a fixed JSON shape. The organizer and type vocabularies mirror the
// event package's closed sets.
const posterPrompt = `请分析这张活动海报或图片，提取以下信息（如果图片中没有某些信息，请返回 null）：

1. 活动标题
2. 活动内容/描述
3. 活动日期（YYYY-MM-DD格式，如果只有月份返回 YYYY-MM）
4. 开始时间（HH:MM格式，24小时制）
5. 结束时间（HH:MM格式，24小时制）
6. 活动地点
7. 主办方/发起者（可能是多个，用逗号分隔。常见的有：创新创业中心、国际交流中心、学生事务中心、教学支持中心、智慧学习中心、生活服务中心、行政管理中心、学生社团、其他）
8. 活动类型（从以下选择最匹配的：学术研究、教学培训、学生活动、产学研合作、行政管理、重要截止）
9. 相关标签（用 # 包裹，例如：#讲座# #直播#）
10. 活动链接/报名链接

请以 JSON 格式返回，格式如下：
{
  "title": "活动标题",
  "content": "活动详细描述",
  "date": "2024-03-15",
  "startTime": "14:00",
  "endTime": "16:00",
  "location": "会议室A",
  "organizers": ["创新创业中心", "学生社团"],
  "eventType": "学术研究",
  "tags": ["#讲座#", "#直播#"],
  "link": "https://example.com",
  "datePrecision": "exact"
}

如果只能确定月份，请设置 datePrecision 为 "month"，date 设为 YYYY-MM 格式。
如果可以确定具体日期，请设置 datePrecision 为 "exact"。`

// Extraction is the normalized suggestion set for one poster. Empty
// fields mean the model found nothing; they never overwrite values a
// user already typed.
type Extraction struct {
	Title         string   `json:"title,omitempty"`
	Content       string   `json:"content,omitempty"`
	Date          string   `json:"date,omitempty"`
	StartTime     string   `json:"startTime,omitempty"`
	EndTime       string   `json:"endTime,omitempty"`
	Location      string   `json:"location,omitempty"`
	Organizers    []string `json:"organizers"`
	EventType     string   `json:"eventType,omitempty"`
	Tags          []string `json:"tags"`
	Link          string   `json:"link,omitempty"`
	DatePrecision string   `json:"datePrecision"`
}

// Client calls an OpenAI-compatible /chat/completions endpoint with a
// vision-capable model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ClientConfig configures a vision client. BaseURL and Model default to
// DashScope compatible mode with qwen-vl-plus.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// HTTPClient is optional; poster analysis can be slow, so the
	// default timeout is generous.
	HTTPClient *http.Client
}

// NewClient creates a vision client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// AnalyzePoster sends the image to the model and returns the normalized
// extraction alongside the raw model text for debugging.
func (c *Client) AnalyzePoster(ctx context.Context, posterURL string) (*Extraction, string, error) {
	if posterURL == "" {
		return nil, "", fmt.Errorf("poster url is required")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: posterURL}},
				{Type: "text", Text: posterPrompt},
			},
		}},
		MaxTokens:   maxResponseTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("call vision model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("vision model returned status %d: %s", resp.StatusCode, body)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, "", fmt.Errorf("decode model response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return nil, "", fmt.Errorf("vision model returned no content")
	}

	raw := cr.Choices[0].Message.Content
	extraction, err := ParseExtraction(raw)
	if err != nil {
		return nil, raw, err
	}
	return extraction, raw, nil
}
