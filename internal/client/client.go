package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"fitroom/internal/model"
	"fitroom/internal/utils"
	"fitroom/pkg/logger"
)

// ModelFilename 模特照片上传时固定使用的文件名
const ModelFilename = "model.jpg"

// Client 后端 HTTP 接口的类型化封装
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient(0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Resolve 把后端返回的相对路径补全为完整 URL
func (c *Client) Resolve(ref string) string {
	return utils.ResolveURL(c.baseURL, ref)
}

func (c *Client) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	var resp model.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ClearChat(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodPost, "/chat/clear", model.ClearChatRequest{SessionID: sessionID}, nil)
}

// UploadModel 以 multipart 字段 file 上传模特照片
func (c *Client) UploadModel(ctx context.Context, image io.Reader) (*model.UploadResponse, error) {
	body, contentType, err := buildMultipart("file", ModelFilename, image, nil)
	if err != nil {
		return nil, err
	}

	var resp model.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListUploads(ctx context.Context) ([]model.UploadEntry, error) {
	var entries []model.UploadEntry
	if err := c.doJSON(ctx, http.MethodGet, "/uploads", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) DeleteUpload(ctx context.Context, filename string) error {
	return c.doJSON(ctx, http.MethodDelete, "/uploads/"+url.PathEscape(filename), nil, nil)
}

// TryOn 上传单品图片（字段 image）和类型（字段 type）
func (c *Client) TryOn(ctx context.Context, garment io.Reader, filename string, garmentType model.GarmentType) (*model.TryOnResponse, error) {
	if filename == "" {
		filename = "photo.jpg"
	}
	body, contentType, err := buildMultipart("image", filename, garment, map[string]string{
		"type": string(garmentType),
	})
	if err != nil {
		return nil, err
	}

	var resp model.TryOnResponse
	if err := c.do(ctx, http.MethodPost, "/try-on", body, contentType, &resp); err != nil {
		return nil, err
	}
	if resp.ProcessedImageURL == "" {
		return nil, fmt.Errorf("%w: missing processedImageUrl", ErrInvalidResponse)
	}
	return &resp, nil
}

func (c *Client) DefaultWardrobe(ctx context.Context) ([]model.DefaultGarment, error) {
	var garments []model.DefaultGarment
	if err := c.doJSON(ctx, http.MethodGet, "/default-wardrobe", nil, &garments); err != nil {
		return nil, err
	}
	return garments, nil
}

// Fetch 下载后端托管的图片，调用方负责关闭
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Resolve(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	logger.Debugf("%s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errResp model.ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func buildMultipart(field, filename string, file io.Reader, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
