package enums

// AuthVariant distinguishes how the merchant connected their messaging account.
// Page-login credentials are long-lived page tokens; direct-login credentials
// are short-lived user tokens that must be exchanged before expiry.
type AuthVariant string

const (
	AuthVariantPageLogin   AuthVariant = "page_login"
	AuthVariantDirectLogin AuthVariant = "direct_login"
)

var validAuthVariants = []AuthVariant{
	AuthVariantPageLogin,
	AuthVariantDirectLogin,
}

// String implements fmt.Stringer.
func (v AuthVariant) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v AuthVariant) IsValid() bool {
	for _, candidate := range validAuthVariants {
		if candidate == v {
			return true
		}
	}
	return false
}
