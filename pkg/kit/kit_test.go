package kit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReadJSON(t *testing.T) {
	type body struct {
		Term string `json:"term"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"OK", `{"term":"shoes"}`, false},
		{"UnknownField", `{"term":"x","extra":1}`, true},
		{"Trailing", `{"term":"x"}{"term":"y"}`, true},
		{"Malformed", `{"term":`, true},
		{"Empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/search", strings.NewReader(tt.payload))
			w := httptest.NewRecorder()

			var got body
			err := ReadJSON(w, r, &got)
			if tt.wantErr {
				if !errors.Is(err, ErrBadBody) {
					t.Fatalf("err=%v want ErrBadBody", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.Term != "shoes" {
				t.Fatalf("term=%q", got.Term)
			}
		})
	}
}

func TestMetricsAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"NoTokenConfigured", "", "Bearer ", http.StatusForbidden},
		{"MissingHeader", "s3cret", "", http.StatusForbidden},
		{"WrongScheme", "s3cret", "Basic s3cret", http.StatusForbidden},
		{"WrongToken", "s3cret", "Bearer nope", http.StatusForbidden},
		{"Valid", "s3cret", "Bearer s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			MetricsAuth(tt.token)(ok).ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Fatalf("status=%d want=%d", w.Code, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger("shelf", "debug"); err != nil {
		t.Fatalf("debug level: %v", err)
	}
	if _, err := NewLogger("shelf", ""); err != nil {
		t.Fatalf("default level: %v", err)
	}
	if _, err := NewLogger("shelf", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestDecodeJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPatch, "/filters", strings.NewReader(`{"bogus":true}`))
	w := httptest.NewRecorder()

	var dst struct {
		Category string `json:"category"`
	}
	if DecodeJSON(w, r, &dst) {
		t.Fatalf("expected DecodeJSON to reject unknown field")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want=%d", w.Code, http.StatusBadRequest)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error != "invalid json" {
		t.Fatalf("error=%q", body.Error)
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Logging(zap.New(core)))
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "500" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("{}"))
	})

	for _, path := range []string{"/products/7", "/products/500"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d want=2", len(entries))
	}

	ok, failed := entries[0], entries[1]
	if ok.Level != zapcore.InfoLevel || failed.Level != zapcore.WarnLevel {
		t.Fatalf("levels=%v,%v want info,warn", ok.Level, failed.Level)
	}

	fields := ok.ContextMap()
	if fields["route"] != "/products/{id}" || fields["path"] != "/products/7" {
		t.Fatalf("route=%v path=%v", fields["route"], fields["path"])
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Fatalf("status=%v", fields["status"])
	}
	if fields["request_id"] == "" {
		t.Fatalf("missing request_id")
	}
}
