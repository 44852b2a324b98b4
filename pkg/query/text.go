package query

// AddTextPredicate attaches the free-text predicate for an already normalized
// term: the message body, the contact name or the contact phone must contain
// the term, case-insensitively. The OR-group is a single AND-ed condition, so
// a search term narrows whatever constraints are already present. An empty
// term leaves the query untouched.
func AddTextPredicate(q Query, term string) Query {
	if term == "" {
		return q
	}
	q = q.Join(AliasContacts, "JOIN contacts c ON c.id = m.contact_id")
	pattern := "%" + escapeLike(term) + "%"
	return q.Where(
		`(LOWER(m.body) LIKE ? ESCAPE '\' OR LOWER(c.name) LIKE ? ESCAPE '\' OR LOWER(c.phone) LIKE ? ESCAPE '\')`,
		pattern, pattern, pattern,
	)
}
