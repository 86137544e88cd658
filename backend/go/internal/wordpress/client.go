package wordpress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"OpenClaw/backend/go/internal/config"
	httpclient "OpenClaw/backend/go/pkg/http"
)

// Client 封装对 WordPress 站点的三种访问方式：
// REST API（本地/远程通用）、CLI 桥接插件（远程 WP-CLI）、媒体库上传。
// 认证凭据在这里注入，调用方只传业务参数。
type Client struct {
	cfg  *config.WordPressConfig
	http *httpclient.Client
}

// NewClient 创建一个 WordPress 客户端。
func NewClient(cfg *config.WordPressConfig, hc *httpclient.Client) *Client {
	return &Client{cfg: cfg, http: hc}
}

// LocalMode 返回是否存在本地 WordPress 安装（决定走 WP-CLI 还是 REST）。
func (c *Client) LocalMode() bool {
	entries, err := os.ReadDir(c.cfg.Path)
	return err == nil && len(entries) > 0
}

// applyAuth 注入 REST 认证：优先 Application Password 的 Basic 头，
// 其次管理员密码。
func (c *Client) applyAuth(req *http.Request) {
	if c.cfg.AppPassword != "" {
		creds := base64.StdEncoding.EncodeToString(
			[]byte(c.cfg.AdminUser + ":" + c.cfg.AppPassword))
		req.Header.Set("Authorization", "Basic "+creds)
		return
	}
	if c.cfg.AdminPassword != "" {
		req.SetBasicAuth(c.cfg.AdminUser, c.cfg.AdminPassword)
	}
}

// Rest 调用 WordPress REST API, 把响应格式化为 "HTTP <status>\n<body>" 文本。
// 所有失败都作为 ERROR 文本返回, 供模型阅读并做出反应。
func (c *Client) Rest(ctx context.Context, method, endpoint string, body map[string]interface{}, params map[string]interface{}) string {
	if c.cfg.URL == "" {
		return "ERROR: WordPress URL not configured."
	}

	target := strings.TrimRight(c.cfg.URL, "/") + "/wp-json" + endpoint
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, fmt.Sprint(v))
		}
		target += "?" + values.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("ERROR: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, data)
}

// BridgeCLI 通过桥接插件在远程站点上执行 WP-CLI 命令 (不带 'wp' 前缀)。
// 桥接端点用共享密钥头认证。
func (c *Client) BridgeCLI(ctx context.Context, command string) string {
	if c.cfg.URL == "" || c.cfg.BridgeSecret == "" {
		return "ERROR: WordPress URL or bridge secret not configured."
	}

	target := strings.TrimRight(c.cfg.URL, "/") + "/wp-json/openclaw/v1/cli"
	payload, _ := json.Marshal(map[string]string{"command": command})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OpenClaw-Secret", c.cfg.BridgeSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if output, ok := result["output"].(string); ok {
		return output
	}
	raw, _ := json.Marshal(result)
	return string(raw)
}

// MediaResult 是媒体库上传的结果。
type MediaResult struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// UploadMedia 把原始字节推入 WordPress 媒体库。
// 本地模式用 wp media import, 远程模式走 REST /wp/v2/media。
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, mimeType string) (*MediaResult, error) {
	if c.LocalMode() {
		return c.uploadViaCLI(ctx, data, filename)
	}
	return c.uploadViaRest(ctx, data, filename, mimeType)
}

func (c *Client) uploadViaRest(ctx context.Context, data []byte, filename, mimeType string) (*MediaResult, error) {
	if c.cfg.URL == "" {
		return nil, fmt.Errorf("WordPress URL not configured")
	}
	if c.cfg.AppPassword == "" && c.cfg.AdminPassword == "" {
		return nil, fmt.Errorf("no WordPress credentials configured for remote upload")
	}

	target := strings.TrimRight(c.cfg.URL, "/") + "/wp-json/wp/v2/media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	req.Header.Set("Content-Type", mimeType)
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("WordPress returned HTTP %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		ID        int    `json:"id"`
		SourceURL string `json:"source_url"`
		GUID      struct {
			Rendered string `json:"rendered"`
		} `json:"guid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	mediaURL := parsed.SourceURL
	if mediaURL == "" {
		mediaURL = parsed.GUID.Rendered
	}
	return &MediaResult{ID: parsed.ID, URL: mediaURL}, nil
}

func (c *Client) uploadViaCLI(ctx context.Context, data []byte, filename string) (*MediaResult, error) {
	safeName := sanitizeFilename(filename)
	tmp, err := os.CreateTemp("", "openclaw-upload-*-"+safeName)
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	importOut := c.cli(ctx, fmt.Sprintf("wp media import %s --porcelain --path=%s --allow-root", tmpPath, c.cfg.Path))
	attachmentID := firstNumber(importOut)
	if attachmentID == 0 {
		return nil, fmt.Errorf("WP-CLI media import failed: %.300s", importOut)
	}

	urlOut := c.cli(ctx, fmt.Sprintf("wp post get %d --field=guid --path=%s --allow-root", attachmentID, c.cfg.Path))
	return &MediaResult{ID: attachmentID, URL: strings.TrimSpace(urlOut)}, nil
}

// cli 在本机执行一条 WP-CLI 命令并返回合并输出。
func (c *Client) cli(ctx context.Context, command string) string {
	return runLocal(ctx, command)
}

// sanitizeFilename 把文件名里的可疑字符替换为下划线。
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// firstNumber 返回输出中第一个纯数字 token, 找不到时为 0。
func firstNumber(output string) int {
	for _, token := range strings.Fields(output) {
		n := 0
		ok := len(token) > 0
		for _, r := range token {
			if r < '0' || r > '9' {
				ok = false
				break
			}
			n = n*10 + int(r-'0')
		}
		if ok {
			return n
		}
	}
	return 0
}
