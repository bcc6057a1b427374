package llm

import (
	"fmt"
	"strings"

	"github.com/shelf-labs/scout/models"
)

// notAvailable is the placeholder rendered for optional fields the
// extractor could not resolve. Rendering the label with an explicit
// placeholder, instead of omitting the line, keeps the model from
// conflating "we didn't extract this" with "the product lacks this".
const notAvailable = "not available"

// systemPrompt fixes the classification criteria and the exact output
// field names so the response parses deterministically.
func systemPrompt(includeBrandReputation bool) string {
	var sb strings.Builder
	sb.WriteString(`You are a product analyst. Given a product listing, classify it and return ONLY a JSON object with exactly these fields:

- "is_portable" (boolean): true if the product is easy to carry or travel with.
- "is_rechargeable" (boolean): true if the product has a built-in rechargeable battery.
- "value_score" (number, 1-10): value for money given its price, features, rating, and review count.
`)
	if includeBrandReputation {
		sb.WriteString(`- "brand_reputation" (integer, 1-5): how reputable and well-known the brand is.
`)
	}
	sb.WriteString(`- "reasoning" (string): a short explanation of your determinations.

Rules:
- Return ONLY valid JSON, no markdown fences or explanation outside the object.
- Fields marked "` + notAvailable + `" were not found on the listing; do not treat them as the product lacking the feature.
- Base your judgment only on the listing data provided.`)
	return sb.String()
}

// renderProductBlock renders a ProductInfo into the fixed-format block the
// model sees. Every field is labeled; absent optional fields render as an
// explicit placeholder rather than being omitted.
func renderProductBlock(info *models.ProductInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", info.Title)

	desc := info.Description
	if strings.TrimSpace(desc) == "" {
		desc = notAvailable
	}
	fmt.Fprintf(&sb, "Description: %s\n", desc)

	fmt.Fprintf(&sb, "Price: %s\n", orPlaceholder(info.Price))
	fmt.Fprintf(&sb, "Brand: %s\n", orPlaceholder(info.Brand))
	fmt.Fprintf(&sb, "Rating: %s\n", orPlaceholder(info.Rating))
	fmt.Fprintf(&sb, "Review count: %s", orPlaceholder(info.ReviewCount))
	return sb.String()
}

func orPlaceholder(field *string) string {
	if field == nil || strings.TrimSpace(*field) == "" {
		return notAvailable
	}
	return *field
}
