package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// NonJSONKey ключ-обертка для тела, которое не удалось разобрать как JSON
const NonJSONKey = "_non_json_response"

const nonJSONLimit = 2000

// Decode разбирает JSON, сохраняя числа как json.Number (id не теряют точность)
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// хвост после первого значения означает, что это не JSON-документ
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

// DecodeOrWrap разбирает тело; при ошибке оборачивает сырой текст, чтобы сработал fallback
func DecodeOrWrap(data []byte) (any, error) {
	v, err := Decode(data)
	if err == nil {
		return v, nil
	}
	raw := string(data)
	if len(raw) > nonJSONLimit {
		raw = raw[:nonJSONLimit]
	}
	return map[string]any{NonJSONKey: raw}, err
}

// Object возвращает v как JSON-объект
func Object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// FirstString возвращает первое непустое значение из перечисленных ключей.
// Числа приводятся к строке, ноль и пустые значения пропускаются.
func FirstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// Int64 приводит число или числовую строку к int64
func Int64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if t.String() == "0" {
			return ""
		}
		return t.String()
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
