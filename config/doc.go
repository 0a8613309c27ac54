// Package config loads and validates the session configuration: domain
// id, enclave, NATS connection settings, liveliness bucket naming, and
// the metrics endpoint.
//
// Configuration comes from a JSON file with ${ENV} references expanded
// before parsing, validated against an embedded JSON schema, then
// overridden by ROSGRAPH_* environment variables. SafeConfig wraps a
// loaded Config for concurrent readers with atomic replacement.
package config
