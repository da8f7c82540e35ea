package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(t *testing.T, body string) echo.Context {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	var target struct {
		Title string `json:"title"`
	}
	c := newTestContext(t, `{"title":"Hades","bogus":true}`)
	if err := decodeJSONBody(c, &target); err == nil {
		t.Fatalf("expected unknown field rejection")
	}
}

func TestDecodeJSONBodyRejectsTrailingContent(t *testing.T) {
	t.Parallel()

	var target struct {
		Title string `json:"title"`
	}
	c := newTestContext(t, `{"title":"Hades"}{"title":"again"}`)
	if err := decodeJSONBody(c, &target); err == nil {
		t.Fatalf("expected trailing content rejection")
	}
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	t.Parallel()

	var target struct {
		Title string `json:"title"`
	}
	c := newTestContext(t, `{"title":"Hades"}`)
	if err := decodeJSONBody(c, &target); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if target.Title != "Hades" {
		t.Fatalf("unexpected title: %q", target.Title)
	}
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 25, 1, 100); err != nil || got != 25 {
		t.Fatalf("expected default, got %d err=%v", got, err)
	}
	if got, err := parsePositiveInt("42", 25, 1, 100); err != nil || got != 42 {
		t.Fatalf("expected 42, got %d err=%v", got, err)
	}
	if _, err := parsePositiveInt("0", 25, 1, 100); err == nil {
		t.Fatalf("expected range error")
	}
	if _, err := parsePositiveInt("abc", 25, 1, 100); err == nil {
		t.Fatalf("expected integer error")
	}
}
