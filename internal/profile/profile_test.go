package profile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceAcceptsStringsAndNumbers(t *testing.T) {
	var p BusinessProfile
	raw := `{"businessName":"Henri","services":[{"name":"Cut","price":"$45"},{"name":"Color","price":120.5}],"products":[{"name":"Wax","price":null}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, Price("$45"), p.Services[0].Price)
	assert.Equal(t, Price("120.5"), p.Services[1].Price)
	assert.Equal(t, Price(""), p.Products[0].Price)

	assert.Error(t, json.Unmarshal([]byte(`{"services":[{"price":true}]}`), &p))
}

func TestMessageLimitDefault(t *testing.T) {
	assert.Equal(t, DefaultDemoMessageLimit, (&BusinessProfile{}).MessageLimit())
	assert.Equal(t, 3, (&BusinessProfile{DemoMessageLimit: 3}).MessageLimit())
	var nilProfile *BusinessProfile
	assert.Equal(t, DefaultDemoMessageLimit, nilProfile.MessageLimit())
}

func TestDemoExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		expiry  string
		expired bool
	}{
		{"no expiry", "", false},
		{"date in past", "2025-06-14", true},
		{"same day after midnight", "2025-06-15", true},
		{"date in future", "2025-06-16", false},
		{"rfc3339 future", "2025-06-15T13:00:00Z", false},
		{"unparseable ignored", "next tuesday", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &BusinessProfile{IsDemoMode: true, DemoExpiryDate: tt.expiry}
			assert.Equal(t, tt.expired, p.DemoExpired(now))
		})
	}
}

func TestPublicViewOmitsPromptContent(t *testing.T) {
	p := &BusinessProfile{
		Name:         "Henri",
		Instructions: "secret tone",
		Phone:        "+45 1234",
		IsDemoMode:   true,
		LogoURL:      "https://cdn/logo.png",
	}
	view := p.Public()
	assert.Equal(t, DefaultDemoMessageLimit, view.DemoMessageLimit)
	assert.Equal(t, "https://cdn/logo.png", view.LogoURL)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret tone")
	assert.NotContains(t, string(data), "+45 1234")
}
