package goflot

// Options is an arbitrarily nested mapping of flot chart options. The keys
// and organization mirror the flot option names directly, so anything flot
// understands can be expressed here (axis modes, grid settings, colors, ...).
type Options map[string]any

// asOptions normalizes the two map shapes that can appear in nested option
// values (Options and plain map[string]any) to a single type.
func asOptions(v any) (Options, bool) {
	switch m := v.(type) {
	case Options:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// update recursively merges in into o. Nested mappings are merged key by
// key; any other value replaces the existing one outright.
func (o Options) update(in Options) {
	for k, v := range in {
		incoming, ok := asOptions(v)
		if !ok {
			o[k] = v
			continue
		}

		existing, ok := asOptions(o[k])
		if !ok {
			existing = Options{}
		}

		merged := existing.clone()
		merged.update(incoming)
		o[k] = merged
	}
}

// clone deep-copies o so that merged layers never alias caller-owned maps.
func (o Options) clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		if m, ok := asOptions(v); ok {
			out[k] = m.clone()
			continue
		}
		out[k] = v
	}
	return out
}

// mergeLayers resolves an ordered chain of option layers (most general
// first) into one effective Options value. Later layers override earlier
// ones, deep-merging nested mappings. No layers yields empty options.
func mergeLayers(layers ...Options) Options {
	merged := Options{}
	for _, layer := range layers {
		merged.update(layer)
	}
	return merged
}
