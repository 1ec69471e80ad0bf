package types

// Template is a prompt template: either a literal string with {{key}}
// placeholders or a pure function of State producing such a string.
type Template struct {
	literal  string
	computed func(State) string
}

// Literal returns a template backed by a fixed string.
func Literal(text string) Template {
	return Template{literal: text}
}

// Computed returns a template computed from the state. fn must not have side effects.
func Computed(fn func(State) string) Template {
	return Template{computed: fn}
}

// IsZero reports whether the template is unset.
func (t Template) IsZero() bool {
	return t.computed == nil && t.literal == ""
}

// IsComputed reports whether the template is the Computed variant.
func (t Template) IsComputed() bool {
	return t.computed != nil
}

// Source returns the raw template text for the given state.
func (t Template) Source(state State) string {
	if t.computed != nil {
		return t.computed(state)
	}
	return t.literal
}

// UnmarshalYAML allows templates to be written as plain strings in character files.
func (t *Template) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*t = Literal(s)
	return nil
}

// Or returns t unless it is zero, in which case fallback is returned.
func (t Template) Or(fallback Template) Template {
	if t.IsZero() {
		return fallback
	}
	return t
}
