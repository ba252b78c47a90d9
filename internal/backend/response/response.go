package response

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	MIMEJSON = "application/json; charset=utf-8"
	MIMEHTML = "text/html; charset=utf-8"
	MIMEText = "text/plain; charset=utf-8"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v without escaping slashes, HTML characters or non-ASCII text.
func JSON(c echo.Context, status int, v any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return c.Blob(status, MIMEJSON, bytes.TrimRight(buf.Bytes(), "\n"))
}

// Error writes {"error": message}.
func Error(c echo.Context, status int, message string) error {
	return JSON(c, status, errorBody{Error: message})
}

func HTML(c echo.Context, status int, html string) error {
	return c.Blob(status, MIMEHTML, []byte(html))
}

func Text(c echo.Context, status int, text string) error {
	return c.Blob(status, MIMEText, []byte(text))
}

// Binary writes data with an explicit content type and length.
func Binary(c echo.Context, status int, contentType string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return c.Blob(status, contentType, data)
}

func NoCache(c echo.Context) {
	c.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Response().Header().Set("Pragma", "no-cache")
	c.Response().Header().Set("Expires", "0")
}

// NotFound writes the plain-text 404 body used outside the JSON API.
func NotFound(c echo.Context) error {
	return Text(c, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}
