package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJSON_DoesNotEscape(t *testing.T) {
	c, rec := newContext()
	payload := map[string]string{"imageUrl": "/api/pictures/1/image", "note": "Bär & <Katze>"}
	if err := JSON(c, http.StatusOK, payload); err != nil {
		t.Fatalf("JSON error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != MIMEJSON {
		t.Errorf("expected content type %q, got %q", MIMEJSON, ct)
	}
	want := `{"imageUrl":"/api/pictures/1/image","note":"Bär & <Katze>"}`
	if got := rec.Body.String(); got != want {
		t.Errorf("expected body %s, got %s", want, got)
	}
}

func TestError(t *testing.T) {
	c, rec := newContext()
	if err := Error(c, http.StatusBadRequest, "Invalid count."); err != nil {
		t.Fatalf("Error error: %v", err)
	}
	if rec.Code != http.StatusBadRequest || rec.Body.String() != `{"error":"Invalid count."}` {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestBinary(t *testing.T) {
	c, rec := newContext()
	data := []byte{1, 2, 3, 4, 5}
	if err := Binary(c, http.StatusOK, "image/gif", data); err != nil {
		t.Fatalf("Binary error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/gif" {
		t.Errorf("expected image/gif, got %q", ct)
	}
	if cl := rec.Header().Get(echo.HeaderContentLength); cl != "5" {
		t.Errorf("expected Content-Length 5, got %q", cl)
	}
	if rec.Body.Len() != 5 {
		t.Errorf("expected 5 body bytes, got %d", rec.Body.Len())
	}
}

func TestTextAndHTML(t *testing.T) {
	c, rec := newContext()
	if err := NotFound(c); err != nil {
		t.Fatalf("NotFound error: %v", err)
	}
	if rec.Code != http.StatusNotFound || rec.Body.String() != "Not Found" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != MIMEText {
		t.Errorf("expected %q, got %q", MIMEText, ct)
	}

	c, rec = newContext()
	if err := HTML(c, http.StatusOK, "<p>hi</p>"); err != nil {
		t.Fatalf("HTML error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != MIMEHTML {
		t.Errorf("expected %q, got %q", MIMEHTML, ct)
	}
}
