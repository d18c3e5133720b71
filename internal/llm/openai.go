package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/sanitize"
)

const (
	openAIDefaultModel = "gpt-4o-mini"
	ollamaDefaultURL   = "http://localhost:11434/v1/"
	ollamaDefaultModel = "llama3.2"

	maxAppraisalTokens = 600
)

var gemWisdomSchema = GenerateSchema[models.GemWisdom]()

// OpenAIAppraiser implements Appraiser using the OpenAI Responses API with
// a strict JSON schema. It also serves OpenAI-compatible endpoints.
type OpenAIAppraiser struct {
	client     *openai.Client
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int

	// Waits between attempts, indexed by attempt number.
	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
}

// NewOpenAIAppraiser creates an appraiser from config. An empty APIKey
// falls back to the OPENAI_API_KEY environment variable. The "ollama"
// provider needs no key and defaults its base URL and model.
func NewOpenAIAppraiser(config ClientConfig) *OpenAIAppraiser {
	model := config.Model
	baseURL := config.BaseURL
	apiKey := config.APIKey
	if apiKey == "" && config.Provider != "ollama" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if config.Provider == "ollama" {
		if baseURL == "" {
			baseURL = ollamaDefaultURL
		}
		if model == "" {
			model = ollamaDefaultModel
		}
		if apiKey == "" {
			apiKey = "ollama" // required by the SDK, ignored by the server
		}
	}
	if model == "" {
		model = openAIDefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	// Retries are handled here, not by the SDK.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIAppraiser{
		client:           &client,
		apiKey:           apiKey,
		model:            model,
		timeout:          timeout,
		maxRetries:       maxRetries,
		rateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second},
		serverErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

// Model returns the model identifier requests are sent to.
func (a *OpenAIAppraiser) Model() string {
	return a.model
}

// Available returns true if an API key is present.
func (a *OpenAIAppraiser) Available() bool {
	return a.apiKey != ""
}

// AppraiseGem asks the model for the entry's archive card.
func (a *OpenAIAppraiser) AppraiseGem(ctx context.Context, entry *models.Entry) (*models.GemWisdom, error) {
	if !a.Available() {
		return nil, ErrUnavailable
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "GemWisdom",
			Schema:      gemWisdomSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Mineral archive card for a journal gem"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           a.model,
		MaxOutputTokens: openai.Int(maxAppraisalTokens),
		Instructions:    openai.String(AppraisalInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(AppraisalPrompt(entry), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := a.callWithRetry(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI API: %w", err)
	}

	var w models.GemWisdom
	if err := DecodeModelJSON(resp.OutputText(), &w); err != nil {
		return nil, fmt.Errorf("parsing appraisal response: %w", err)
	}
	return cleanWisdom(w)
}

func (a *OpenAIAppraiser) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	for try := 0; try < a.maxRetries; try++ {
		resp, err := a.attempt(ctx, params)
		if err == nil {
			return resp, nil
		}
		last := try == a.maxRetries-1

		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = a.rateLimitWaits
		case isServerError(err):
			waits = a.serverErrorWaits
		}
		if waits == nil || last {
			return nil, err
		}
		if err := sleep(ctx, waitFor(waits, try)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", a.maxRetries)
}

// attempt makes one request bounded by the appraiser timeout. Waits between
// attempts are bounded only by ctx.
func (a *OpenAIAppraiser) attempt(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.client.Responses.New(ctx, params)
}

func waitFor(waits []time.Duration, attempt int) time.Duration {
	if len(waits) == 0 {
		return 0
	}
	if attempt >= len(waits) {
		return waits[len(waits)-1]
	}
	return waits[attempt]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// cleanWisdom sanitizes every field and rejects cards with a blank field.
func cleanWisdom(w models.GemWisdom) (*models.GemWisdom, error) {
	out := models.GemWisdom{
		MineralName: sanitize.SanitizeWisdomField(w.MineralName),
		Composition: sanitize.SanitizeWisdomField(w.Composition),
		Quote:       sanitize.SanitizeWisdomField(w.Quote),
		Advice:      sanitize.SanitizeWisdomField(w.Advice),
	}
	if out.MineralName == "" || out.Composition == "" || out.Quote == "" || out.Advice == "" {
		return nil, fmt.Errorf("appraisal response has an empty field: %+v", out)
	}
	return &out, nil
}
