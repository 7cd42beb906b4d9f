package specgen

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockCompleter implements Completer against the Bedrock Converse API.
type BedrockCompleter struct {
	client *bedrockruntime.Client
}

func NewBedrockCompleter(client *bedrockruntime.Client) *BedrockCompleter {
	return &BedrockCompleter{client: client}
}

// Complete sends a single-turn user message and returns the model's raw
// text response.
func (b *BedrockCompleter) Complete(ctx context.Context, modelID, prompt string, maxTokens int32, temperature float32) (string, error) {
	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(temperature),
		},
	})
	if err != nil {
		return "", classify("complete", err)
	}

	message, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(message.Value.Content) == 0 {
		return "", &Error{Kind: KindMalformedResponse, Op: "complete", Message: "provider returned no message content"}
	}

	text, ok := message.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return "", &Error{Kind: KindMalformedResponse, Op: "complete", Message: "provider returned non-text content"}
	}

	return text.Value, nil
}
