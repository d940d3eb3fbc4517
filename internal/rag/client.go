package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client talks to the retrieval sidecar over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

type queryReq struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type queryResp struct {
	Chunks []Chunk `json:"chunks"`
	Error  string  `json:"error,omitempty"`
}

func (c *Client) Query(ctx context.Context, collection, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		k = 6
	}
	b, err := json.Marshal(queryReq{Query: query, K: k})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/collections/%s/query", c.BaseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("retriever: status %d", resp.StatusCode)
	}

	var decoded queryResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	return decoded.Chunks, nil
}

func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	url := fmt.Sprintf("%s/collections/%s/count", c.BaseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("retriever: status %d", resp.StatusCode)
	}

	var decoded struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, err
	}
	return decoded.Count, nil
}

func (c *Client) Reset(ctx context.Context, collection string) error {
	url := fmt.Sprintf("%s/collections/%s/reset", c.BaseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("retriever: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Index(ctx context.Context, collection, filename string, r io.Reader) (IndexStats, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return IndexStats{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return IndexStats{}, err
	}
	if err := mw.Close(); err != nil {
		return IndexStats{}, err
	}

	url := fmt.Sprintf("%s/collections/%s/documents", c.BaseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return IndexStats{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return IndexStats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return IndexStats{}, fmt.Errorf("retriever: %s", msg)
	}

	var stats IndexStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return IndexStats{}, err
	}
	if stats.Collection == "" {
		stats.Collection = collection
	}
	return stats, nil
}
