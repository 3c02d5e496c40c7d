// Package tokens resolves {name} placeholders in path and URL templates.
package tokens

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// placeholder matches the shortest {...} run, so "{a}{b}" yields two tokens.
var placeholder = regexp.MustCompile(`{(.*?)}`)

// Resolve replaces every {name} in template with tokens[name].
// Names missing from tokens are left verbatim so a template can be resolved
// in stages; a present empty value resolves to the empty string.
func Resolve(template string, tokens map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := tokens[name]
		if !ok {
			return match
		}
		return value
	})
}

// FromDocument stringifies the top-level fields of a document for use as tokens.
// Nil fields are skipped and therefore stay unresolved.
func FromDocument(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		if s, ok := Stringify(value); ok {
			out[key] = s
		}
	}
	return out
}

// FromEnviron builds a token map from KEY=VALUE pairs as returned by os.Environ.
func FromEnviron(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Stringify renders a document value as a token. It reports false for nil.
func Stringify(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case time.Time:
		return v.UTC().Format(time.RFC3339), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return v.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		return v.String(), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(b), true
	}
}
