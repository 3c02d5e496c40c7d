package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		template string
		tokens   map[string]string
		want     string
	}{
		"multiple tokens": {
			template: "Hello, {name} from {place}!",
			tokens:   map[string]string{"name": "World", "place": "Earth"},
			want:     "Hello, World from Earth!",
		},
		"missing token stays verbatim": {
			template: "Hello, {name}!",
			tokens:   map[string]string{},
			want:     "Hello, {name}!",
		},
		"empty token resolves to empty string": {
			template: "Hello, {name}!",
			tokens:   map[string]string{"name": ""},
			want:     "Hello, !",
		},
		"nil map": {
			template: "users/{userId}/checkout-sessions",
			want:     "users/{userId}/checkout-sessions",
		},
		"adjacent tokens": {
			template: "{a}{b}",
			tokens:   map[string]string{"a": "1", "b": "2"},
			want:     "12",
		},
		"partial resolution": {
			template: "tenants/{tenant}/users/{userId}",
			tokens:   map[string]string{"tenant": "acme"},
			want:     "tenants/acme/users/{userId}",
		},
		"default webhook URL": {
			template: "https://{LOCATION}-{PROJECT_ID}.cloudfunctions.net/ext-{EXT_INSTANCE_ID}-handlePaymentStatus",
			tokens: map[string]string{
				"LOCATION":        "us-central1",
				"PROJECT_ID":      "my-project",
				"EXT_INSTANCE_ID": "firestore-liqpay-payments",
			},
			want: "https://us-central1-my-project.cloudfunctions.net/ext-firestore-liqpay-payments-handlePaymentStatus",
		},
		"no placeholders": {
			template: "checkout-sessions",
			tokens:   map[string]string{"x": "y"},
			want:     "checkout-sessions",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(tt.template, tt.tokens))
		})
	}
}

func TestFromDocument(t *testing.T) {
	t.Parallel()

	got := FromDocument(map[string]any{
		"userId":  "user123",
		"amount":  100,
		"price":   101.99,
		"paid":    false,
		"missing": nil,
		"created": time.Date(2024, 10, 19, 8, 20, 28, 0, time.UTC),
	})

	assert.Equal(t, map[string]string{
		"userId":  "user123",
		"amount":  "100",
		"price":   "101.99",
		"paid":    "false",
		"created": "2024-10-19T08:20:28Z",
	}, got)

	assert.Equal(t, "users/user123/checkout-sessions/{missing}",
		Resolve("users/{userId}/checkout-sessions/{missing}", got))
}

func TestFromEnviron(t *testing.T) {
	t.Parallel()

	got := FromEnviron([]string{"LOCATION=us-central1", "EMPTY=", "WITH_EQUALS=a=b", "=skipped", "garbage"})

	assert.Equal(t, map[string]string{
		"LOCATION":    "us-central1",
		"EMPTY":       "",
		"WITH_EQUALS": "a=b",
	}, got)
}
