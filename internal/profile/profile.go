package profile

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultDemoMessageLimit applies when a demo profile omits demoMessageLimit.
const DefaultDemoMessageLimit = 10

// Price accepts either a JSON string ("$45") or a bare number (45).
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return err
	}
	*p = Price(raw)
	return nil
}

type Service struct {
	Name  string `json:"name" yaml:"name"`
	Price Price  `json:"price" yaml:"price"`
}

type Product struct {
	Name     string `json:"name" yaml:"name"`
	Price    Price  `json:"price" yaml:"price"`
	Size     string `json:"size,omitempty" yaml:"size"`
	Category string `json:"category,omitempty" yaml:"category"`
	ImageURL string `json:"imageUrl,omitempty" yaml:"imageUrl"`
}

// Offer covers gift cards, loyalty cards and gift boxes.
type Offer struct {
	Name        string `json:"name" yaml:"name"`
	Price       Price  `json:"price,omitempty" yaml:"price"`
	Description string `json:"description,omitempty" yaml:"description"`
}

type Location struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	MapURL  string `json:"mapUrl,omitempty" yaml:"mapUrl"`
}

type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// BusinessProfile is the per-tenant configuration record that drives prompts and demo gating.
type BusinessProfile struct {
	Name        string `json:"businessName" yaml:"businessName"`
	Description string `json:"description,omitempty" yaml:"description"`
	Currency    string `json:"currency,omitempty" yaml:"currency"`

	Services     []Service         `json:"services,omitempty" yaml:"services"`
	Products     []Product         `json:"products,omitempty" yaml:"products"`
	GiftCards    []Offer           `json:"giftCards,omitempty" yaml:"giftCards"`
	LoyaltyCards []Offer           `json:"loyaltyCards,omitempty" yaml:"loyaltyCards"`
	GiftBoxes    []Offer           `json:"giftBoxes,omitempty" yaml:"giftBoxes"`
	Locations    []Location        `json:"locations,omitempty" yaml:"locations"`
	Hours        map[string]string `json:"hours,omitempty" yaml:"hours"`
	FAQ          []FAQ             `json:"faq,omitempty" yaml:"faq"`

	BookingURL        string   `json:"bookingUrl,omitempty" yaml:"bookingUrl"`
	WebsiteURL        string   `json:"websiteUrl,omitempty" yaml:"websiteUrl"`
	OnlineShopURL     string   `json:"onlineShopUrl,omitempty" yaml:"onlineShopUrl"`
	GiftCardShopURL   string   `json:"giftCardShopUrl,omitempty" yaml:"giftCardShopUrl"`
	Phone             string   `json:"phone,omitempty" yaml:"phone"`
	PhoneHours        string   `json:"phoneHours,omitempty" yaml:"phoneHours"`
	Email             string   `json:"email,omitempty" yaml:"email"`
	ImportantPolicies []string `json:"importantPolicies,omitempty" yaml:"importantPolicies"`
	Instructions      string   `json:"instructions,omitempty" yaml:"instructions"`

	IsDemoMode         bool           `json:"isDemoMode" yaml:"isDemoMode"`
	DemoMessageLimit   int            `json:"demoMessageLimit,omitempty" yaml:"demoMessageLimit"`
	DemoExpiryDate     string         `json:"demoExpiryDate,omitempty" yaml:"demoExpiryDate"`
	StripePaymentLink  string         `json:"stripePaymentLink,omitempty" yaml:"stripePaymentLink"`
	SubscriptionPrices map[string]any `json:"subscriptionPrices,omitempty" yaml:"subscriptionPrices"`

	PrimaryLanguage   string `json:"primaryLanguage,omitempty" yaml:"primaryLanguage"`
	SecondaryLanguage string `json:"secondaryLanguage,omitempty" yaml:"secondaryLanguage"`

	// Widget branding, passed through to the embed.
	PrimaryColor   string `json:"primaryColor,omitempty" yaml:"primaryColor"`
	SecondaryColor string `json:"secondaryColor,omitempty" yaml:"secondaryColor"`
	TextColor      string `json:"textColor,omitempty" yaml:"textColor"`
	LogoURL        string `json:"logoUrl,omitempty" yaml:"logoUrl"`
}

// MessageLimit returns the demo cap, applying the default when unset.
func (p *BusinessProfile) MessageLimit() int {
	if p == nil || p.DemoMessageLimit <= 0 {
		return DefaultDemoMessageLimit
	}
	return p.DemoMessageLimit
}

// ExpiresAt parses demoExpiryDate. Date-only values expire at midnight UTC of that day.
func (p *BusinessProfile) ExpiresAt() (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(p.DemoExpiryDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DemoExpired reports whether a demo profile is past its expiry date at now.
func (p *BusinessProfile) DemoExpired(now time.Time) bool {
	expiry, ok := p.ExpiresAt()
	return ok && now.After(expiry)
}

// PublicView is the subset of a profile the embeddable widget may read.
type PublicView struct {
	Name               string         `json:"businessName"`
	Description        string         `json:"description,omitempty"`
	PrimaryLanguage    string         `json:"primaryLanguage,omitempty"`
	SecondaryLanguage  string         `json:"secondaryLanguage,omitempty"`
	PrimaryColor       string         `json:"primaryColor,omitempty"`
	SecondaryColor     string         `json:"secondaryColor,omitempty"`
	TextColor          string         `json:"textColor,omitempty"`
	LogoURL            string         `json:"logoUrl,omitempty"`
	BookingURL         string         `json:"bookingUrl,omitempty"`
	IsDemoMode         bool           `json:"isDemoMode"`
	DemoMessageLimit   int            `json:"demoMessageLimit,omitempty"`
	DemoExpiryDate     string         `json:"demoExpiryDate,omitempty"`
	StripePaymentLink  string         `json:"stripePaymentLink,omitempty"`
	SubscriptionPrices map[string]any `json:"subscriptionPrices,omitempty"`
}

// Public strips prompt content and contact details the widget does not need.
func (p *BusinessProfile) Public() PublicView {
	view := PublicView{
		Name:               p.Name,
		Description:        p.Description,
		PrimaryLanguage:    p.PrimaryLanguage,
		SecondaryLanguage:  p.SecondaryLanguage,
		PrimaryColor:       p.PrimaryColor,
		SecondaryColor:     p.SecondaryColor,
		TextColor:          p.TextColor,
		LogoURL:            p.LogoURL,
		BookingURL:         p.BookingURL,
		IsDemoMode:         p.IsDemoMode,
		DemoExpiryDate:     p.DemoExpiryDate,
		StripePaymentLink:  p.StripePaymentLink,
		SubscriptionPrices: p.SubscriptionPrices,
	}
	if p.IsDemoMode {
		view.DemoMessageLimit = p.MessageLimit()
	}
	return view
}
