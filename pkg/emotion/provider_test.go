package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHTTPProviderRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPProvider(); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestHTTPProviderClassify(t *testing.T) {
	var gotContentType string
	var gotBody int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = n

		json.NewEncoder(w).Encode([]Scored{
			{Label: Happy, Score: 0.7},
			{Label: Neutral, Score: 0.3},
		})
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	scores, err := p.Classify(context.Background(), []byte("jpegdata"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores: got %d, want 2", len(scores))
	}
	if scores[0].Label != Happy {
		t.Errorf("first label: got %s, want happy", scores[0].Label)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("content type: got %q, want image/jpeg", gotContentType)
	}
	if gotBody != len("jpegdata") {
		t.Errorf("body length: got %d, want %d", gotBody, len("jpegdata"))
	}
}

func TestHTTPProviderEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	p, _ := NewHTTPProvider(WithEndpoint(srv.URL))
	if _, err := p.Classify(context.Background(), nil); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no face found", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p, _ := NewHTTPProvider(WithEndpoint(srv.URL))
	if _, err := p.Classify(context.Background(), nil); err == nil {
		t.Error("non-200 status should surface as an error")
	}
}

func TestMockProvider(t *testing.T) {
	m := &Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) ([]Scored, error) {
			return []Scored{{Label: Fear, Score: 1}}, nil
		},
	}

	scores, err := m.Classify(context.Background(), nil)
	if err != nil {
		t.Fatalf("mock classify: %v", err)
	}
	if scores[0].Label != Fear {
		t.Errorf("mock label: got %s, want fear", scores[0].Label)
	}
	if m.Calls() != 1 {
		t.Errorf("mock calls: got %d, want 1", m.Calls())
	}
}
