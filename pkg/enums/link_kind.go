package enums

// LinkKind selects which storefront URL a resolved link points at.
type LinkKind string

const (
	LinkKindCheckout    LinkKind = "checkout"
	LinkKindProductPage LinkKind = "product_page"
)

var validLinkKinds = []LinkKind{
	LinkKindCheckout,
	LinkKindProductPage,
}

// String implements fmt.Stringer.
func (k LinkKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k LinkKind) IsValid() bool {
	for _, candidate := range validLinkKinds {
		if candidate == k {
			return true
		}
	}
	return false
}
