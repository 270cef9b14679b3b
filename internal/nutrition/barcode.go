package nutrition

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/portion"
)

const defaultBarcodeURL = "https://world.openfoodfacts.org"

// BarcodeLookup resolves a scanned code to a per-100 baseline.
type BarcodeLookup interface {
	Lookup(ctx context.Context, code string) (portion.Baseline, error)
}

// OpenFoodFactsClient implements BarcodeLookup against the Open Food Facts v2 API.
type OpenFoodFactsClient struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

var _ BarcodeLookup = (*OpenFoodFactsClient)(nil)

// NewOpenFoodFactsClient creates a client. An empty baseURL uses the public server.
func NewOpenFoodFactsClient(baseURL string, log *slog.Logger) *OpenFoodFactsClient {
	return &OpenFoodFactsClient{
		baseURL:    strings.TrimRight(cmp.Or(baseURL, defaultBarcodeURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Quantity    string `json:"quantity"`
		Nutriments  struct {
			EnergyKcal100g    float64 `json:"energy-kcal_100g"`
			Proteins100g      float64 `json:"proteins_100g"`
			Carbohydrates100g float64 `json:"carbohydrates_100g"`
			Fat100g           float64 `json:"fat_100g"`
		} `json:"nutriments"`
	} `json:"product"`
}

// Lookup fetches the product for code. Unknown products return ErrProductNotFound.
func (c *OpenFoodFactsClient) Lookup(ctx context.Context, code string) (portion.Baseline, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return portion.Baseline{}, ErrProductNotFound
	}

	u := fmt.Sprintf("%s/api/v2/product/%s.json?fields=product_name,brands,quantity,nutriments", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return portion.Baseline{}, fmt.Errorf("barcode: create request: %w", err)
	}
	req.Header.Set("User-Agent", "fitlog/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return portion.Baseline{}, fmt.Errorf("barcode: %s: %w", code, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return portion.Baseline{}, ErrProductNotFound
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return portion.Baseline{}, fmt.Errorf("barcode: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return portion.Baseline{}, fmt.Errorf("barcode: %s returned %d: %s", code, resp.StatusCode, body)
	}

	var out offResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return portion.Baseline{}, fmt.Errorf("barcode: decode: %w", err)
	}
	if out.Status != 1 {
		return portion.Baseline{}, ErrProductNotFound
	}

	p := out.Product
	name := p.ProductName
	if brand, _, _ := strings.Cut(p.Brands, ","); brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		name = strings.TrimSpace(brand + " " + name)
	}
	unit := portion.Grams
	if q := strings.ToLower(p.Quantity); strings.HasSuffix(q, "ml") || strings.HasSuffix(q, "cl") || strings.HasSuffix(q, " l") {
		unit = portion.Milliliters
	}

	c.log.Debug("barcode lookup", "code", code, "name", name)
	return portion.Baseline{
		Name:           cmp.Or(name, code),
		Unit:           unit,
		CaloriesPer100: p.Nutriments.EnergyKcal100g,
		ProteinPer100:  p.Nutriments.Proteins100g,
		CarbsPer100:    p.Nutriments.Carbohydrates100g,
		FatsPer100:     p.Nutriments.Fat100g,
	}, nil
}
