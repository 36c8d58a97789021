package ai

import "context"

type Request struct {
	SystemInstruction string
	UserPrompt        string
	Temperature       float32
	MaxTokens         int
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Client is the language model collaborator. Failures are returned as *Error.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
