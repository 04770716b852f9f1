package image_caller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

// ErrEmptyOutput 推理服务未返回图片
var ErrEmptyOutput = errors.New("推理服务未返回图片")

// APIError 推理服务返回的非2xx错误
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API返回错误: status=%d, body=%s", e.StatusCode, truncate(e.Body, 300))
}

// ImageCaller 文生图推理服务客户端
type ImageCaller struct {
	client       *http.Client
	apiBase      string
	apiToken     string
	pollInterval time.Duration
	maxPolls     int
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Prompt string
	Seed   int
	Width  int
	Height int
}

// GeneratedImage 生成结果
type GeneratedImage struct {
	Data         []byte
	ContentType  string
	PredictionID string
}

// prediction 推理任务
type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// NewImageCaller 创建推理服务客户端
func NewImageCaller(apiBase, apiToken string, timeout, pollInterval time.Duration) *ImageCaller {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	maxPolls := int(timeout / pollInterval)
	if maxPolls < 1 {
		maxPolls = 1
	}

	return &ImageCaller{
		client: &http.Client{
			Timeout: timeout,
		},
		apiBase:      strings.TrimRight(apiBase, "/"),
		apiToken:     apiToken,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// Generate 调用模型生成一张图片
func (ic *ImageCaller) Generate(ctx context.Context, model string, opts *GenerateOptions) (*GeneratedImage, error) {
	input := map[string]interface{}{
		"prompt": opts.Prompt,
		"seed":   opts.Seed,
	}
	if opts.Width > 0 && opts.Height > 0 {
		input["width"] = opts.Width
		input["height"] = opts.Height
	}

	jsonBody, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	url := ic.apiBase + "/models/" + model + "/predictions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	pred, err := ic.doPrediction(req)
	if err != nil {
		return nil, err
	}

	// 同步等待未完成时轮询任务状态
	for i := 0; !isTerminal(pred.Status); i++ {
		if i >= ic.maxPolls || pred.URLs.Get == "" {
			return nil, fmt.Errorf("推理任务超时: id=%s, status=%s", pred.ID, pred.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ic.pollInterval):
		}

		pollReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return nil, fmt.Errorf("创建请求失败: %w", err)
		}
		if pred, err = ic.doPrediction(pollReq); err != nil {
			return nil, err
		}
	}

	if pred.Status != statusSucceeded {
		return nil, fmt.Errorf("推理任务失败: id=%s, status=%s, error=%v", pred.ID, pred.Status, pred.Error)
	}

	outputURL, err := firstOutput(pred.Output)
	if err != nil {
		return nil, err
	}

	data, contentType, err := ic.download(ctx, outputURL)
	if err != nil {
		return nil, err
	}

	return &GeneratedImage{
		Data:         data,
		ContentType:  contentType,
		PredictionID: pred.ID,
	}, nil
}

// doPrediction 发送请求并解析推理任务
func (ic *ImageCaller) doPrediction(req *http.Request) (*prediction, error) {
	if ic.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+ic.apiToken)
	}

	resp, err := ic.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &pred, nil
}

// download 下载生成的图片
func (ic *ImageCaller) download(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("创建下载请求失败: %w", err)
	}

	resp, err := ic.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("下载图片失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("读取图片失败: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyOutput
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// ParseSize 解析 "1024x1024" 形式的尺寸
func ParseSize(size string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(size)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("无效的图片尺寸: %q", size)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("无效的图片宽度: %q", size)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("无效的图片高度: %q", size)
	}

	return width, height, nil
}

func isTerminal(status string) bool {
	return status == statusSucceeded || status == statusFailed || status == statusCanceled
}

// firstOutput 输出可能是单个URL或URL数组
func firstOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrEmptyOutput
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return "", ErrEmptyOutput
		}
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("解析输出失败: %w", err)
	}
	if len(list) == 0 || list[0] == "" {
		return "", ErrEmptyOutput
	}

	return list[0], nil
}

func decodeDataURL(url string) ([]byte, string, error) {
	comma := strings.Index(url, ",")
	if comma == -1 {
		return nil, "", fmt.Errorf("无效的data URL")
	}

	meta := strings.TrimPrefix(url[:comma], "data:")
	contentType := strings.TrimSuffix(meta, ";base64")

	data, err := base64.StdEncoding.DecodeString(url[comma+1:])
	if err != nil {
		return nil, "", fmt.Errorf("解码data URL失败: %w", err)
	}

	return data, contentType, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
