package utils

import "strings"

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// NonBlank reports whether s is set and holds more than whitespace.
func NonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
