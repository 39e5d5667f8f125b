package analyzer

import "context"

type ImagePayload struct {
	DataURI     string
	Description string
}

type ChatPayload struct {
	System     string
	User       string
	Images     []ImagePayload
	ExpectJSON bool
	MaxTokens  int
}

// ModelProvider 是一次多模态聊天补全调用。
type ModelProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}
