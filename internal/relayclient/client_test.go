package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mentor-chat/internal/models"
)

func TestGenerate_Success(t *testing.T) {
	var got models.RelayRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(models.RelayResponse{Response: "Budgeting\n**Saving**"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	reply, err := c.Generate(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "mentor"},
		{Role: models.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "Budgeting\n**Saving**" {
		t.Errorf("Unexpected reply %q", reply)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hi" {
		t.Errorf("Unexpected request body: %+v", got)
	}
}

func TestGenerate_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json error", http.StatusInternalServerError, `{"error":"Gemini API key is not configured"}`, "Gemini API key is not configured"},
		{"plain body", http.StatusMethodNotAllowed, "Method Not Allowed", "Method Not Allowed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, 5*time.Second).Generate(context.Background(), nil)
			var relayErr *Error
			if !errors.As(err, &relayErr) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if relayErr.StatusCode != tc.status || relayErr.Message != tc.want {
				t.Fatalf("Unexpected error: %+v", relayErr)
			}
		})
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, time.Second).Generate(context.Background(), nil); err == nil {
		t.Fatal("Expected an error for a closed server")
	}
}
