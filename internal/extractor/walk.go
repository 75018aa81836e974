// Package extractor находит код Pix и QR-картинку в ответе шлюза,
// схема которого не зафиксирована контрактом.
package extractor

import (
	"encoding/json"
	"iter"
	"sort"
)

// Leaves возвращает ленивую последовательность строковых листьев v в порядке обхода в глубину.
// Ключи map обходятся в отсортированном порядке: у map в Go нет порядка документа.
func Leaves(v any) iter.Seq[string] {
	return func(yield func(string) bool) {
		walk(v, yield)
	}
}

func walk(v any, yield func(string) bool) bool {
	switch t := v.(type) {
	case string:
		return yield(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !walk(t[k], yield) {
				return false
			}
		}
	case []any:
		for _, item := range t {
			if !walk(item, yield) {
				return false
			}
		}
	case json.Number:
		// числа не кандидаты
	}
	return true
}

// Heuristic ищет кандидата в разобранном теле и, если не нашел, в сыром тексте
type Heuristic interface {
	Match(leaf string) (string, bool)
	Fallback(raw string) (string, bool)
}

// Find применяет эвристику: сначала структурный проход, затем сырой текст
func Find(h Heuristic, parsed any, raw string) (string, bool) {
	for leaf := range Leaves(parsed) {
		if cand, ok := h.Match(leaf); ok {
			return cand, true
		}
	}
	if raw == "" {
		return "", false
	}
	return h.Fallback(raw)
}
