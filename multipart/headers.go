package multipart

// Headers is a multimap of one part's header fields. A field name may
// repeat; values for a name keep their arrival order.
type Headers map[string][]string

func (h Headers) Add(name, value string) {
	h[name] = append(h[name], value)
}

// Get returns the first value recorded for name.
func (h Headers) Get(name string) (string, bool) {
	vs := h[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns every value recorded for name, in arrival order.
func (h Headers) Values(name string) []string { return h[name] }

func (h Headers) clone() Headers {
	out := make(Headers, len(h))
	for name, vs := range h {
		out[name] = append([]string(nil), vs...)
	}
	return out
}
