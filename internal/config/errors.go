package config

import "errors"

// Errors returned by the config package.
var (
	// ErrNotMap is returned by Set when an intermediate path element holds
	// a scalar value.
	ErrNotMap = errors.New("config: path element is not a map")

	// ErrNoPath is returned by Save when the config was not created from a
	// file.
	ErrNoPath = errors.New("config: no file path bound")
)
