package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/rosgraph/errors"
)

// configSchema is the structural contract for config files. Semantic
// checks that a schema cannot express live in Config.Validate.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "domain_id": {"type": "integer", "minimum": 0},
    "enclave": {"type": "string"},
    "nats": {
      "type": "object",
      "properties": {
        "urls": {"type": "array", "items": {"type": "string"}, "minItems": 1},
        "max_reconnects": {"type": "integer"},
        "reconnect_wait": {"type": ["string", "integer"]},
        "timeout": {"type": ["string", "integer"]},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "token": {"type": "string"},
        "tls": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "cert_file": {"type": "string"},
            "key_file": {"type": "string"},
            "ca_file": {"type": "string"}
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "liveliness": {
      "type": "object",
      "properties": {
        "bucket_prefix": {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
        "connection_check_attempts": {"type": "integer", "minimum": 0},
        "connection_check_interval": {"type": ["string", "integer"]}
      },
      "additionalProperties": false
    },
    "metrics": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "path": {"type": "string"}
      },
      "additionalProperties": false
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "format": {"type": "string", "enum": ["text", "json"]}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

// validateSchema checks a raw JSON document against the embedded schema
func validateSchema(document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "validateSchema", "run schema validation")
	}

	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "validateSchema",
			strings.Join(msgs, "; "))
	}
	return nil
}
