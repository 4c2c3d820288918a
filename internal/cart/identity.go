package cart

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/menu"
)

// baseVariantKey stands in for "no variant chosen".
const baseVariantKey = "base"

// LineID derives the identity of a customization. It depends only on the
// product id, the variant id, the option multiset and the exclusion set, so
// equal customizations always collapse into one line.
func LineID(productID string, variant *menu.Variant, options []menu.OptionItem, excluded []string) string {
	variantKey := baseVariantKey
	if variant != nil {
		variantKey = variant.ID
	}

	optionKeys := make([]string, 0, len(options))
	for _, opt := range options {
		optionKeys = append(optionKeys, opt.GroupID+"/"+opt.Key())
	}
	sort.Strings(optionKeys)

	exclusions := make([]string, 0, len(excluded))
	seen := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		exclusions = append(exclusions, name)
	}
	sort.Strings(exclusions)

	// a JSON array keeps component boundaries unambiguous
	raw, _ := json.Marshal([]any{productID, variantKey, optionKeys, exclusions})
	return "ln_" + common.Fingerprint(string(raw))[:24]
}
