package gateway

// Principal is an authenticated user identity as reported by the platform.
type Principal struct {
	ID    string
	Email string
}

// Session bundles the access token with the principal it belongs to.
type Session struct {
	AccessToken string
	Principal   Principal
}

// Row is a single table row. Column types follow JSON decoding rules.
type Row map[string]any

// Filter is one predicate on a table operation. Op uses the platform's
// operator names ("eq", "gt", "ilike", ...).
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq builds an equality filter, by far the most common predicate.
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}
