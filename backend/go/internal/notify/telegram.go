package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"OpenClaw/backend/go/pkg/logger"
)

// telegram 单条消息的长度上限附近留余量。
const maxMessageChars = 4000

// Telegram 通过 Bot API 把文本推送给全部管理员。
// 单个管理员发送失败只记日志, 不影响其余接收者。
type Telegram struct {
	token    string
	adminIDs []string
	httpc    *http.Client
	log      *logger.Logger
}

func NewTelegram(token string, adminIDs []string, log *logger.Logger) *Telegram {
	return &Telegram{
		token:    token,
		adminIDs: adminIDs,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.token == "" || len(t.adminIDs) == 0 {
		return fmt.Errorf("telegram 未配置")
	}
	if len(text) > maxMessageChars {
		text = text[:maxMessageChars] + "\n... (truncated)"
	}

	var lastErr error
	for _, id := range t.adminIDs {
		if err := t.send(ctx, id, text); err != nil {
			t.log.WithField("chat_id", id).WithError(err).Error("Telegram 推送失败")
			lastErr = err
		}
	}
	return lastErr
}

func (t *Telegram) send(ctx context.Context, chatID string, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API 返回 %d", resp.StatusCode)
	}
	return nil
}
