package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/and161185/machtrueke/internal/model"
)

// ListMyProducts returns the product cards of GET /api/products/me.
func (c *Client) ListMyProducts(ctx context.Context) ([]model.Card, error) {
	var out model.Items[model.Card]
	if _, err := c.do(ctx, "list products", http.MethodGet, "/api/products/me", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateMatch records a positive decision on productID. Both a bare match
// object and a {"match": {...}} envelope are accepted. A body-less success
// yields a zero Match; callers fill in what they know locally.
func (c *Client) CreateMatch(ctx context.Context, productID model.ID) (model.Match, error) {
	body := struct {
		ProductID model.ID `json:"productId"`
	}{productID}

	var raw json.RawMessage
	ok, err := c.do(ctx, "create match", http.MethodPost, "/api/likes", body, &raw)
	if err != nil || !ok {
		return model.Match{}, err
	}
	var env struct {
		Match *model.Match `json:"match"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Match != nil {
		return *env.Match, nil
	}
	var m model.Match
	_ = json.Unmarshal(raw, &m)
	return m, nil
}

// ListMyMatches returns the matches of GET /api/likes/mine.
func (c *Client) ListMyMatches(ctx context.Context) ([]model.Match, error) {
	var out model.Items[model.Match]
	if _, err := c.do(ctx, "list matches", http.MethodGet, "/api/likes/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
