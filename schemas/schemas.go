// Package schemas embeds the JSON Schemas for isatis input files.
package schemas

import _ "embed"

// ReferenceSchemaJSON describes a certified reference record file.
//
//go:embed reference.schema.json
var ReferenceSchemaJSON string

// ConfigSchemaJSON describes the .isatis.yaml project configuration.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
