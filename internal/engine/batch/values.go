package batch

// Values is a field-name to value mapping used for common defaults, item inputs
// and item results.
type Values map[string]any

// Merge returns a new mapping holding common overlaid with item. Keys present in
// item win; the merge is shallow and neither argument is modified.
func Merge(common, item Values) Values {
	merged := make(Values, len(common)+len(item))
	for k, v := range common {
		merged[k] = v
	}
	for k, v := range item {
		merged[k] = v
	}
	return merged
}

// Sink collects the outputs a single item invocation produces. A Sink belongs to
// exactly one invocation and must not be retained after it returns.
type Sink struct {
	values Values
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{values: Values{}}
}

// Set records an output value, replacing any previous value for key.
func (s *Sink) Set(key string, value any) {
	s.values[key] = value
}

// Output adapts the sink to the func(key, value) output callback shape used by
// action handlers.
func (s *Sink) Output() func(key string, value any) {
	return s.Set
}

// Result hands over the collected values. The returned map is never nil.
func (s *Sink) Result() Values {
	out := s.values
	s.values = Values{}
	return out
}
