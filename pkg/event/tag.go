package event

// Tag is one ordered row of strings. The first element is conventionally the
// tag key, but the core attaches no meaning to any element.
type Tag []string

// Tags is an ordered list of tag rows.
type Tags []Tag

// Key returns the first element, or "" for an empty tag.
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the second element, or "" if there is none.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

func (t Tag) Clone() Tag {
	if t == nil {
		return nil
	}
	out := make(Tag, len(t))
	copy(out, t)
	return out
}

// Clone deep-copies every row.
func (tags Tags) Clone() Tags {
	if tags == nil {
		return nil
	}
	out := make(Tags, len(tags))
	for i, t := range tags {
		out[i] = t.Clone()
	}
	return out
}

// GetFirst returns the first tag with the given key.
func (tags Tags) GetFirst(key string) (Tag, bool) {
	for _, t := range tags {
		if len(t) > 0 && t[0] == key {
			return t, true
		}
	}
	return nil, false
}

// GetAll returns every tag with the given key, in order.
func (tags Tags) GetAll(key string) Tags {
	var out Tags
	for _, t := range tags {
		if len(t) > 0 && t[0] == key {
			out = append(out, t)
		}
	}
	return out
}

// Equal compares row by row. A nil list equals an empty one.
func (tags Tags) Equal(other Tags) bool {
	if len(tags) != len(other) {
		return false
	}
	for i := range tags {
		if len(tags[i]) != len(other[i]) {
			return false
		}
		for j := range tags[i] {
			if tags[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// rows converts to the plain form used in external representations. A nil
// list becomes an empty one so it serializes as [].
func (tags Tags) rows() [][]string {
	out := make([][]string, len(tags))
	for i, t := range tags {
		out[i] = make([]string, len(t))
		copy(out[i], t)
	}
	return out
}
