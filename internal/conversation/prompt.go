package conversation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wolfman30/chappy-widget-api/internal/profile"
)

// DefaultLanguage is used for unknown or empty language codes.
const DefaultLanguage = "en"

var languageNames = map[string]string{
	"en": "English",
	"da": "Danish",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"sv": "Swedish",
	"no": "Norwegian",
	"fi": "Finnish",
}

// LanguageName maps an ISO-639-1 code to the name used in prompts, falling back to English.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return languageNames[DefaultLanguage]
}

// SupportedLanguage reports whether code has a prompt translation.
func SupportedLanguage(code string) bool {
	_, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

var weekdayOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

const formattingRules = `FORMATTING RULES (follow exactly):
- Put every listed item on its own line.
- Write list items as: - [Name](#): price
- Leave a blank line before every list.
- Never put two items on the same line.
- When an item has a picture, show it on the line after the item as: ![Name](url)
- Only show pictures for items that have a picture URL above. Never invent URLs.`

// BuildPrompt renders the system prompt for a business in the requested language.
// It is pure: the profile must already be loaded.
func BuildPrompt(p *profile.BusinessProfile, languageCode string) string {
	if p == nil {
		p = &profile.BusinessProfile{}
	}
	var b strings.Builder

	name := orPlaceholder(p.Name, "this business")
	fmt.Fprintf(&b, "You are Chappy, the website assistant for %s.\n", name)
	fmt.Fprintf(&b, "About the business: %s\n", orPlaceholder(p.Description, "No description available."))

	section(&b, "CONTACT")
	writeLine(&b, "Phone", p.Phone, "No phone number available")
	if p.Phone != "" && p.PhoneHours != "" {
		writeLine(&b, "Phone hours", p.PhoneHours, "")
	}
	writeLine(&b, "Email", p.Email, "No email available")
	writeLine(&b, "Website", p.WebsiteURL, "No website available")

	section(&b, "LOCATIONS")
	if len(p.Locations) == 0 {
		b.WriteString("No locations listed.\n")
	}
	for _, loc := range p.Locations {
		fmt.Fprintf(&b, "- %s: %s", orPlaceholder(loc.Name, "Location"), orPlaceholder(loc.Address, "address not listed"))
		if loc.MapURL != "" {
			fmt.Fprintf(&b, " (map: %s)", loc.MapURL)
		}
		b.WriteString("\n")
	}

	section(&b, "SERVICES")
	if len(p.Services) == 0 {
		b.WriteString("No services available.\n")
	}
	for _, svc := range p.Services {
		fmt.Fprintf(&b, "- %s: %s\n", svc.Name, formatPrice(svc.Price, p.Currency))
	}

	section(&b, "PRODUCTS")
	if len(p.Products) == 0 {
		b.WriteString("No products available.\n")
	}
	for _, prod := range p.Products {
		fmt.Fprintf(&b, "- %s: %s", prod.Name, formatPrice(prod.Price, p.Currency))
		if details := joinNonEmpty(", ", prod.Size, prod.Category); details != "" {
			fmt.Fprintf(&b, " (%s)", details)
		}
		if prod.ImageURL != "" {
			b.WriteString(" [has picture]\n")
			fmt.Fprintf(&b, "  IMAGE: %s\n", prod.ImageURL)
			continue
		}
		b.WriteString(" [no picture]\n")
	}

	writeOffers(&b, "GIFT CARDS", p.GiftCards, p.Currency, "No gift cards available.")
	writeOffers(&b, "LOYALTY AND MEMBERSHIP CARDS", p.LoyaltyCards, p.Currency, "No loyalty or membership cards available.")
	writeOffers(&b, "GIFT BOXES", p.GiftBoxes, p.Currency, "No gift boxes available.")

	section(&b, "OPENING HOURS")
	days := orderedDays(p.Hours)
	if len(days) == 0 {
		b.WriteString("Opening hours not listed.\n")
	}
	for _, day := range days {
		fmt.Fprintf(&b, "- %s: %s\n", capitalize(day), p.Hours[day])
	}

	section(&b, "FREQUENTLY ASKED QUESTIONS")
	if len(p.FAQ) == 0 {
		b.WriteString("No FAQ available.\n")
	}
	for _, faq := range p.FAQ {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", faq.Question, faq.Answer)
	}

	section(&b, "IMPORTANT POLICIES")
	if len(p.ImportantPolicies) == 0 {
		b.WriteString("No special policies.\n")
	}
	for _, policy := range p.ImportantPolicies {
		fmt.Fprintf(&b, "- %s\n", policy)
	}

	b.WriteString("\n")
	b.WriteString(formattingRules)
	b.WriteString("\n")

	section(&b, "BOOKING")
	if p.BookingURL != "" {
		fmt.Fprintf(&b, "When the customer wants to book, send this link: [Book here](%s)\n", p.BookingURL)
		b.WriteString("Never say you can book on their behalf; the booking page is the only way to book.\n")
	} else {
		b.WriteString("Online booking is not available. Ask the customer to call or email to book.\n")
	}

	if p.OnlineShopURL != "" || p.GiftCardShopURL != "" {
		section(&b, "ONLINE SHOPPING")
		if p.OnlineShopURL != "" {
			fmt.Fprintf(&b, "Products can be bought online: [Shop online](%s)\n", p.OnlineShopURL)
		}
		if p.GiftCardShopURL != "" {
			fmt.Fprintf(&b, "Gift cards can be bought online: [Buy a gift card](%s)\n", p.GiftCardShopURL)
		}
	}

	section(&b, "TONE AND BEHAVIOUR")
	b.WriteString(orPlaceholder(strings.TrimSpace(p.Instructions), "Be friendly, concise and professional. Only answer using the facts above; if you do not know, say so and offer the contact details."))
	b.WriteString("\n")

	section(&b, "LANGUAGE")
	fmt.Fprintf(&b, "Always reply in %s, even if the facts above are written in another language.\n", LanguageName(languageCode))

	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s:\n", title)
}

func writeLine(b *strings.Builder, label, value, placeholder string) {
	fmt.Fprintf(b, "%s: %s\n", label, orPlaceholder(value, placeholder))
}

func writeOffers(b *strings.Builder, title string, offers []profile.Offer, currency, placeholder string) {
	section(b, title)
	if len(offers) == 0 {
		b.WriteString(placeholder + "\n")
		return
	}
	for _, o := range offers {
		fmt.Fprintf(b, "- %s: %s", o.Name, formatPrice(o.Price, currency))
		if o.Description != "" {
			fmt.Fprintf(b, " (%s)", o.Description)
		}
		b.WriteString("\n")
	}
}

// formatPrice appends the currency to bare numbers and substitutes a placeholder for blanks.
func formatPrice(price profile.Price, currency string) string {
	raw := strings.TrimSpace(string(price))
	if raw == "" {
		return "price on request"
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil && currency != "" {
		return raw + " " + currency
	}
	return raw
}

func orderedDays(hours map[string]string) []string {
	keys := make([]string, 0, len(hours))
	for key := range hours {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool, len(keys))
	days := make([]string, 0, len(keys))
	for _, day := range weekdayOrder {
		for _, key := range keys {
			if !seen[key] && strings.EqualFold(key, day) {
				days = append(days, key)
				seen[key] = true
			}
		}
	}
	for _, key := range keys {
		if !seen[key] {
			days = append(days, key)
		}
	}
	return days
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
