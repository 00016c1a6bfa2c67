package query

// Partition visits each predicate exactly once. Predicates accepted by
// consume are taken by the caller; the rest are returned in their original
// order as the residual set.
func Partition(preds []Predicate, consume func(Predicate) bool) []Predicate {
	residual := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if consume(p) {
			continue
		}
		residual = append(residual, p)
	}
	return residual
}
