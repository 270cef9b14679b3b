package nutrition

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultVisionModel = "gemini-3-flash-preview"
	defaultTextModel   = "gemini-3-pro-preview"

	analysisInstruction = `Act as an expert dietitian and OCR specialist.
1. Scan the image for any text first. If a brand or product name is visible, use it as the primary source.
2. Always return nutrition values per 100 grams (solids) or 100 ml (liquids), using the per-100 table when present.
3. Decide whether the product is liquid ('ml') or solid ('g').
4. Always give a best guess for the most likely product.
Answer only with JSON following the schema.`
)

// Analyzer turns a meal photo into nutrition values.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (AnalysisResult, error)
}

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures GeminiClient. Empty fields use defaults.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	TextModel   string
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	visionModel string
	textModel   string
	httpClient  *http.Client
	log         *slog.Logger
}

// Compile-time checks.
var (
	_ Analyzer      = (*GeminiClient)(nil)
	_ TextGenerator = (*GeminiClient)(nil)
)

// NewGeminiClient creates a client. It does not validate the key.
func NewGeminiClient(cfg GeminiConfig, log *slog.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cmp.Or(cfg.BaseURL, defaultGeminiURL), "/"),
		visionModel: cmp.Or(cfg.VisionModel, defaultVisionModel),
		textModel:   cmp.Or(cfg.TextModel, defaultTextModel),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		log:         log,
	}
}

// Configured reports whether an API key is set.
func (c *GeminiClient) Configured() bool {
	return len(c.apiKey) >= 5
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

var analysisSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"naam":             map[string]any{"type": "STRING", "description": "Product or brand name"},
		"type":             map[string]any{"type": "STRING", "description": "Unit: 'ml' or 'g'"},
		"kcal_100":         map[string]any{"type": "NUMBER", "description": "Calories per 100 units"},
		"eiwit_100":        map[string]any{"type": "NUMBER", "description": "Protein per 100 units"},
		"koolhydraten_100": map[string]any{"type": "NUMBER", "description": "Carbohydrates per 100 units"},
		"vet_100":          map[string]any{"type": "NUMBER", "description": "Fat per 100 units"},
	},
	"required": []string{"naam", "type", "kcal_100", "eiwit_100", "koolhydraten_100", "vet_100"},
}

// Analyze sends the image to the vision model and decodes the answer.
// Every failure is an *AnalysisError.
func (c *GeminiClient) Analyze(ctx context.Context, image []byte, mimeType string) (AnalysisResult, error) {
	if !c.Configured() {
		return AnalysisResult{}, &AnalysisError{Message: "meal analysis is not configured"}
	}
	if len(image) == 0 {
		return AnalysisResult{}, &AnalysisError{Message: "no image provided"}
	}

	req := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{
			{Text: analysisInstruction},
			{InlineData: &inlineData{MimeType: cmp.Or(mimeType, "image/jpeg"), Data: base64.StdEncoding.EncodeToString(image)}},
		}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json", ResponseSchema: analysisSchema},
	}

	text, err := c.generate(ctx, c.visionModel, req)
	if err != nil {
		c.log.Error("meal analysis failed", "error", err)
		return AnalysisResult{}, &AnalysisError{Message: "meal recognition failed, check your connection and try a clearer photo", Err: err}
	}

	res, err := DecodeAnalysis([]byte(text))
	if err != nil {
		return AnalysisResult{}, &AnalysisError{Message: "meal recognition returned an unreadable answer", Err: err}
	}
	return res, nil
}

// Generate sends a text prompt to the text model.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", errors.New("gemini: api key not configured")
	}
	return c.generate(ctx, c.textModel, generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
}

func (c *GeminiClient) generate(ctx context.Context, model string, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %s: %w", model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: %s returned %d: %s", model, resp.StatusCode, data)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini: empty response")
	}
	return sb.String(), nil
}

// ParseDataURL splits a "data:<mime>;base64,<payload>" URL into the decoded
// bytes and mime type. Plain base64 input is accepted as image/jpeg.
func ParseDataURL(s string) ([]byte, string, error) {
	mimeType := "image/jpeg"
	payload := s
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data URL")
		}
		if m, _, _ := strings.Cut(header, ";"); m != "" {
			mimeType = m
		}
		payload = data
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return b, mimeType, nil
}
