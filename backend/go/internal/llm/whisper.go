package llm

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// Transcriber 封装 Whisper 语音转写。
// 它直连 OpenAI 而不是经过 LiteLLM——代理对二进制音频上传不可靠。
// 未配置 API key 时为 nil，由 /health 上报可用性。
type Transcriber struct {
	client *openai.Client
}

// NewTranscriber 创建一个 Whisper 客户端；apiKey 为空时返回 nil。
func NewTranscriber(apiKey string) *Transcriber {
	if apiKey == "" {
		return nil
	}
	return &Transcriber{client: openai.NewClient(apiKey)}
}

// Transcribe 把一段音频 (Telegram 语音为 OGG Opus) 转写为文本。
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}
