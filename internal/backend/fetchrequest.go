package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	minFetchCount     = 1
	maxFetchCount     = 25
	defaultFetchCount = 1
)

var (
	errInvalidJSON  = errors.New("invalid JSON body")
	errInvalidCount = errors.New("invalid count")
)

// FetchRequest is a fetch body after the animal has been lowered and count coerced.
type FetchRequest struct {
	Animal string `validate:"oneof=cat dog bear"`
	Count  int    `validate:"min=1,max=25"`
}

// rawFetchRequest keeps the fields loosely typed until they are checked one by one.
type rawFetchRequest struct {
	Animal any
	Count  any
}

// decodeFetchBody parses the request body. An empty body is treated as {}.
func decodeFetchBody(body io.Reader) (*rawFetchRequest, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errInvalidJSON
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &rawFetchRequest{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil || fields == nil {
		return nil, errInvalidJSON
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errInvalidJSON
	}

	return &rawFetchRequest{Animal: fields["animal"], Count: fields["count"]}, nil
}

// coerceCount accepts, in this order: absent/null (default 1), JSON numbers, numeric strings.
// Fractions truncate toward zero. Booleans, objects, arrays and non-numeric strings are
// rejected, and never read as 0 or 1.
func coerceCount(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return defaultFetchCount, nil
	case json.Number:
		return numberToCount(v.String())
	case float64:
		return floatToCount(v), nil
	case int:
		return v, nil
	case string:
		return numberToCount(strings.TrimSpace(v))
	default:
		return 0, errInvalidCount
	}
}

func numberToCount(s string) (int, error) {
	if s == "" {
		return 0, errInvalidCount
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampCount(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, errInvalidCount
	}
	return floatToCount(f), nil
}

func floatToCount(f float64) int {
	if math.IsInf(f, 0) || f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// clampCount keeps huge values out of range without overflowing int on 32-bit platforms.
func clampCount(i int64) int {
	if i > math.MaxInt32 {
		return math.MaxInt32
	}
	if i < math.MinInt32 {
		return math.MinInt32
	}
	return int(i)
}
