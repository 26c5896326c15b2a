package classifier

import (
	"context"
	"fmt"

	"github.com/mnemolab/revise/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const chatModel = openai.GPT4oMini

// OpenAIClient implements the external classification service for the LLM
// and verification tiers. All network I/O and schema validation happens
// here, at the boundary; the core only ever sees validated judgments.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  chatModel,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) JudgeRelationship(ctx context.Context, oldContent, newContent string) (*domain.LLMJudgment, error) {
	user := fmt.Sprintf("OLD statement: %q\nNEW statement: %q", oldContent, newContent)
	raw, err := c.complete(ctx, judgeSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	judgment, err := ParseJudgment(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid judgment from classifier: %w", err)
	}
	return judgment, nil
}

func (c *OpenAIClient) VerifySupersession(ctx context.Context, oldContent, newContent string, detected domain.ConflictType) (*domain.VerificationResult, error) {
	user := fmt.Sprintf("Detected conflict type: %s\nOLD statement: %q\nNEW statement: %q",
		detected, oldContent, newContent)
	raw, err := c.complete(ctx, verifySystemPrompt, user)
	if err != nil {
		return nil, err
	}
	verification, err := ParseVerification(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid verification from classifier: %w", err)
	}
	return verification, nil
}
