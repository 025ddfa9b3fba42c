package settings

// LookupValue walks path through doc. A missing key or a nil value reports
// not set. A scalar found where a nested mapping is required is a
// *StructuralError.
func LookupValue(doc Document, path Path) (any, bool, error) {
	if doc == nil || len(path) == 0 {
		return nil, false, nil
	}
	var current any = doc
	for i, segment := range path {
		mapping, ok := current.(map[string]any)
		if !ok {
			return nil, false, &StructuralError{Path: append(Path(nil), path[:i]...), Segment: segment, Found: current}
		}
		value, present := mapping[segment]
		if !present || value == nil {
			return nil, false, nil
		}
		current = value
	}
	return current, true, nil
}

// SetValueAt writes value at path, creating intermediate mappings.
func SetValueAt(doc Document, path Path, value any) error {
	if len(path) == 0 {
		return &StructuralError{Path: path, Found: doc}
	}
	current := doc
	for i, segment := range path[:len(path)-1] {
		next, present := current[segment]
		if !present || next == nil {
			created := Document{}
			current[segment] = created
			current = created
			continue
		}
		mapping, ok := next.(map[string]any)
		if !ok {
			return &StructuralError{Path: append(Path(nil), path[:i+1]...), Segment: path[i+1], Found: next}
		}
		current = mapping
	}
	current[path[len(path)-1]] = value
	return nil
}
