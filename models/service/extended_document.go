package service

// ExtendedDocument is the generic tree built from ontology-governed
// content elements. Values are scalars, nested ExtendedDocuments, or
// []interface{} once a key has been seen more than once.
type ExtendedDocument map[string]interface{}

// Fold stores value under key. The first value is stored as is. A second
// value turns the slot into a slice, and later values are appended.
func (doc ExtendedDocument) Fold(key string, value interface{}) {
	existing, ok := doc[key]
	if !ok {
		doc[key] = value
		return
	}
	if list, isList := existing.([]interface{}); isList {
		doc[key] = append(list, value)
		return
	}
	doc[key] = []interface{}{existing, value}
}

// Get returns the value under a dotted path such as "Director.Name".
// Slices are not traversed.
func (doc ExtendedDocument) Get(path ...string) (interface{}, bool) {
	var current interface{} = doc
	for _, key := range path {
		node, ok := current.(ExtendedDocument)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
