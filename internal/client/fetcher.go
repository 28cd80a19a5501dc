// HTTP-backed history fetcher.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tbourn/go-direct-chat/internal/services"
)

// HTTPFetcher loads history pages from the chat API's paginated endpoint.
// It implements HistoryFetcher over GET {base}/get-messages/{recipientId}.
type HTTPFetcher struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/api/v1".
	BaseURL string
	// UserID identifies the local user; sent as X-User-ID.
	UserID int
	// Client is the HTTP client to use; nil means http.DefaultClient.
	Client *http.Client
}

// FetchHistory requests one page of the conversation with recipientID.
func (f *HTTPFetcher) FetchHistory(ctx context.Context, recipientID, page int) (HistoryPage, error) {
	url := fmt.Sprintf("%s/get-messages/%d?page=%d", strings.TrimSuffix(f.BaseURL, "/"), recipientID, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HistoryPage{}, err
	}
	req.Header.Set("X-User-ID", strconv.Itoa(f.UserID))
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return HistoryPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HistoryPage{}, fmt.Errorf("history fetch: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data        []services.MessageView `json:"data"`
		CurrentPage int                    `json:"current_page"`
		LastPage    int                    `json:"last_page"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return HistoryPage{}, fmt.Errorf("history fetch: decode: %w", err)
	}
	return HistoryPage{
		Messages:    envelope.Data,
		CurrentPage: envelope.CurrentPage,
		LastPage:    envelope.LastPage,
	}, nil
}
