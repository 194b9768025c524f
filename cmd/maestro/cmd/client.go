package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"maestro/internal/evaluation"
	"maestro/internal/risk"
)

const defaultServer = "http://localhost:8080"

// apiClient handles requests to a running maestro server
type apiClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// newAPIClient targets server, falling back to MAESTRO_API_URL and then localhost
func newAPIClient(server, token string) *apiClient {
	if server == "" {
		server = os.Getenv("MAESTRO_API_URL")
	}
	if server == "" {
		server = defaultServer
	}
	return &apiClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    server,
		token:      token,
	}
}

// menuPizza is the client-side view of a menu entry
type menuPizza struct {
	ID            string              `json:"id"`
	Ingredients   map[string][]string `json:"ingredients"`
	Price         string              `json:"price"`
	Protein       string              `json:"protein"`
	Calories      string              `json:"calories"`
	ExpectedTaste float64             `json:"expected_taste"`
}

// menuRisk is the response of the menu risk endpoint
type menuRisk struct {
	Pizzas int         `json:"pizzas"`
	Risk   risk.Result `json:"risk"`
}

func (c *apiClient) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// Menu lists the stored pizzas
func (c *apiClient) Menu(ctx context.Context, sort string, desc bool) ([]menuPizza, error) {
	q := url.Values{}
	if sort != "" {
		q.Set("sort", sort)
		q.Set("desc", fmt.Sprint(desc))
	}
	path := "/api/v1/menu"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var pizzas []menuPizza
	if err := c.do(ctx, http.MethodGet, path, &pizzas); err != nil {
		return nil, err
	}
	return pizzas, nil
}

// MenuRisk measures the whole menu at quantile q
func (c *apiClient) MenuRisk(ctx context.Context, q float64) (*menuRisk, error) {
	var out menuRisk
	path := "/api/v1/menu/risk?quantile=" + url.QueryEscape(fmt.Sprint(q))
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes a pizza from the menu
func (c *apiClient) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/menu/"+url.PathEscape(id), nil)
}

// Scenarios lists the server's scenarios
func (c *apiClient) Scenarios(ctx context.Context) ([]evaluation.Scenario, error) {
	var out []evaluation.Scenario
	if err := c.do(ctx, http.MethodGet, "/api/v1/scenarios", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateScenario runs a scenario on the server
func (c *apiClient) EvaluateScenario(ctx context.Context, id string) (map[string]float64, error) {
	var out struct {
		Metrics map[string]float64 `json:"metrics"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/scenarios/"+url.PathEscape(id)+"/evaluate", &out); err != nil {
		return nil, err
	}
	return out.Metrics, nil
}
