package toolrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/tools"
	httpclient "OpenClaw/backend/go/pkg/http"
)

// secretHeader 是 Agent 与 Runner 之间的共享密钥头。
const secretHeader = "X-Runner-Secret"

// Client 是 Agent 侧访问 Runner 的 HTTP 客户端。
// 它同时实现注册表的 RemoteSource 和调度器的 RemoteCaller。
type Client struct {
	baseURL string
	secret  string
	httpc   *httpclient.Client
}

func NewClient(baseURL, secret string, httpc *httpclient.Client) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  secret,
		httpc:   httpc,
	}
}

// Catalog 拉取 Runner 的聚合工具目录。
func (c *Client) Catalog(ctx context.Context) ([]tools.RemoteCatalog, error) {
	var catalogs []tools.RemoteCatalog
	if err := c.doJSON(ctx, http.MethodGet, "/tools", nil, &catalogs); err != nil {
		return nil, err
	}
	return catalogs, nil
}

// Call 执行一次远程工具调用并返回文本结果。
func (c *Client) Call(ctx context.Context, alias, tool string, args map[string]any) (string, error) {
	payload := map[string]any{"tool": tool, "arguments": args}
	var out struct {
		Output string `json:"output"`
	}
	path := fmt.Sprintf("/servers/%s/call", alias)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

// ListServers 代理管理接口: 列出已安装的服务器。
func (c *Client) ListServers(ctx context.Context) ([]models.ServerRecord, error) {
	var records []models.ServerRecord
	if err := c.doJSON(ctx, http.MethodGet, "/servers", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// InstallServer 代理管理接口: 安装一个允许列表内的服务器包。
func (c *Client) InstallServer(ctx context.Context, alias, packageID string, env map[string]string) (*models.ServerRecord, error) {
	payload := map[string]any{"alias": alias, "package_id": packageID, "env": env}
	var record models.ServerRecord
	if err := c.doJSON(ctx, http.MethodPost, "/servers", payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// RemoveServer 代理管理接口: 卸载一个服务器。
func (c *Client) RemoveServer(ctx context.Context, alias string) error {
	return c.doJSON(ctx, http.MethodDelete, "/servers/"+alias, nil, nil)
}

// ServerTools 代理管理接口: 重新内省一个服务器的工具清单。
func (c *Client) ServerTools(ctx context.Context, alias string) ([]models.RemoteTool, error) {
	var out []models.RemoteTool
	if err := c.doJSON(ctx, http.MethodGet, "/servers/"+alias+"/tools", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set(secretHeader, c.secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("runner 请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("runner: %s", apiErr.Error)
		}
		return fmt.Errorf("runner 返回 %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
