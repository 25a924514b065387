// Copyright (c) 2023 BVK Chaitanya

package gobs

import (
	"fmt"
)

// NewByTypename returns a pointer to a new zero value of the named type.
func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "TriangularPath":
		v = new(TriangularPath)
	case "PathsMeta":
		v = new(PathsMeta)
	case "KeyValue":
		v = new(KeyValue)
	case "TelegramState":
		v = new(TelegramState)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
