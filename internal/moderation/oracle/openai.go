package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arbiter/internal/policy"
	dErrors "arbiter/pkg/domain-errors"
)

const classifyPromptTemplate = `You are a content moderation classifier. Analyze the following content and classify it into one of these categories:

Categories:
- harassment: Content that harasses, intimidates, or bullies individuals
- hate_speech: Content that promotes hatred against protected groups
- spam: Repetitive, promotional, or unsolicited content
- violence: Content that promotes or glorifies violence
- adult_content: Sexually explicit or mature content
- none: Content that does not violate any policy

Content to analyze:
%q

Respond with a JSON object containing:
- "category": one of the categories listed above
- "reasoning": a brief explanation for your classification

Be conservative: only classify as a violation if there is clear evidence. When in doubt, classify as "none".`

const scorePromptTemplate = `You are a content moderation confidence scorer. Given content that has been classified as potentially violating a policy, assess how confident we should be in this classification.

Content: %q
Classified as: %s
Classification reasoning: %s

Consider these factors when scoring:
1. Clarity of violation: Is the violation obvious or ambiguous?
2. Context: Could the content be interpreted differently in context?
3. Severity: How severe is the potential violation?
4. Intent: Does the content appear intentionally harmful?

Respond with a JSON object containing:
- "confidence": a number between 0.0 and 1.0 (0.0 = not confident at all, 1.0 = completely confident)
- "factors": brief explanation of what influenced your confidence score

Scoring guidelines:
- 0.0-0.3: Very uncertain, could easily be misclassified
- 0.3-0.5: Some indicators present but ambiguous
- 0.5-0.7: Clear indicators but some room for interpretation
- 0.7-0.9: Strong evidence of violation
- 0.9-1.0: Unambiguous, severe violation`

// OpenAIConfig configures the chat-completions backed oracle.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAI implements Classifier and Scorer against an OpenAI-compatible
// chat-completions endpoint. Temperature is pinned to zero so repeated calls
// on the same content converge.
type OpenAI struct {
	config OpenAIConfig
	client *http.Client
}

func NewOpenAI(config OpenAIConfig) *OpenAI {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &OpenAI{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Classify(ctx context.Context, content string) (Classification, error) {
	raw, err := o.complete(ctx, fmt.Sprintf(classifyPromptTemplate, content))
	if err != nil {
		return Classification{}, err
	}

	var parsed struct {
		Category  string `json:"category"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Classification{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "classifier returned malformed JSON")
	}

	return Classification{
		// Unknown category strings collapse to none rather than erroring;
		// a confused model must not produce an enforcement category.
		Category:  policy.ParseCategory(strings.ToLower(parsed.Category)),
		Reasoning: parsed.Reasoning,
	}, nil
}

func (o *OpenAI) ScoreConfidence(ctx context.Context, content string, category policy.Category, reasoning string) (Score, error) {
	raw, err := o.complete(ctx, fmt.Sprintf(scorePromptTemplate, content, category, reasoning))
	if err != nil {
		return Score{}, err
	}

	var parsed struct {
		Confidence float64 `json:"confidence"`
		Factors    string  `json:"factors"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Score{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "scorer returned malformed JSON")
	}

	return Score{
		Confidence: clamp(parsed.Confidence),
		Factors:    parsed.Factors,
	}, nil
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:          o.config.Model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    0,
		ResponseFormat: &formatSpec{Type: "json_object"},
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode completion request")
	}

	url := strings.TrimRight(o.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "completion request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "read completion response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", dErrors.Newf(dErrors.CodeUnavailable, "completion endpoint returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "decode completion response")
	}
	if len(parsed.Choices) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "completion response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
