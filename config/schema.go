//go:generate go run ../build/gen-config-schema.go schema.json

// Package config carries the generated JSON schema for bundle-pipeline
// configuration files.
package config

import (
	_ "embed"
)

//go:embed "schema.json"
var schema []byte

// Schema returns the raw JSON schema document.
func Schema() []byte {
	return schema
}
