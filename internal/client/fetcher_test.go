package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPFetcher_FetchHistory(t *testing.T) {
	var gotPath, gotUser, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.Header.Get("X-User-ID")
		gotPage = r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": 2, "message": "newer", "sender_id": 2, "sender_name": "Bob", "is_read": false},
				{"id": 1, "message": "older", "sender_id": 1, "sender_name": "Alice", "is_read": true}
			],
			"current_page": 3,
			"last_page": 5,
			"per_page": 10,
			"total": 42
		}`))
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL + "/", UserID: 1}
	page, err := f.FetchHistory(context.Background(), 2, 3)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}

	if gotPath != "/get-messages/2" || gotUser != "1" || gotPage != "3" {
		t.Fatalf("request wrong: path=%q user=%q page=%q", gotPath, gotUser, gotPage)
	}
	if page.CurrentPage != 3 || page.LastPage != 5 || len(page.Messages) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Messages[0].Message != "newer" || page.Messages[1].SenderName != "Alice" {
		t.Fatalf("unexpected messages: %+v", page.Messages)
	}
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL, UserID: 0}
	if _, err := f.FetchHistory(context.Background(), 2, 1); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
