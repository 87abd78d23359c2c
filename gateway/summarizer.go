// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const defaultSummaryModel = "anthropic.claude-3-haiku-20240307-v1:0"

// bedrockInvoker is the slice of the Bedrock runtime client the
// summarizer needs; tests stub it.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// CallSummarizer generates a short post-call summary from the call's
// action trail via AWS Bedrock. Summaries are best-effort: failures are
// logged by the caller and never fail the call.
type CallSummarizer struct {
	client  bedrockInvoker
	modelID string
}

// NewCallSummarizerFromEnv builds the summarizer when BEDROCK_REGION is
// set; returns nil, nil otherwise (summaries disabled).
func NewCallSummarizerFromEnv(ctx context.Context) (*CallSummarizer, error) {
	region := os.Getenv("BEDROCK_REGION")
	if region == "" {
		return nil, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock: %w", err)
	}

	modelID := getEnv("BEDROCK_SUMMARY_MODEL", defaultSummaryModel)
	return &CallSummarizer{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// ModelID reports which model the summarizer invokes
func (s *CallSummarizer) ModelID() string {
	return s.modelID
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize produces a two-to-three sentence summary of the call
func (s *CallSummarizer) Summarize(ctx context.Context, call *Call, actions []*CallAction) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        300,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildSummaryPrompt(call, actions)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to build summary request: %w", err)
	}

	output, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invocation failed: %w", err)
	}

	var response anthropicResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to parse bedrock response: %w", err)
	}
	if len(response.Content) == 0 || strings.TrimSpace(response.Content[0].Text) == "" {
		return "", fmt.Errorf("bedrock returned an empty summary")
	}
	return strings.TrimSpace(response.Content[0].Text), nil
}

func buildSummaryPrompt(call *Call, actions []*CallAction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize this %s call for a %s business in 2-3 sentences. ",
		call.Direction, call.Sector)
	fmt.Fprintf(&b, "The call lasted %d seconds and ended with outcome %q.\n\n",
		call.DurationSeconds, call.Outcome)

	if len(actions) == 0 {
		b.WriteString("No agent actions were taken during the call.")
		return b.String()
	}

	b.WriteString("Agent actions in order:\n")
	for i, action := range actions {
		if action.Status == "failed" {
			fmt.Fprintf(&b, "%d. %s (%s) failed: %s\n", i+1, action.Intent, action.Sector, action.ErrorMsg)
			continue
		}
		fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, action.Intent, action.Sector, action.Response)
	}
	return b.String()
}
