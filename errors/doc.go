// Package errors provides the error taxonomy shared by all rosgraph
// components.
//
// # Classification
//
// Errors fall into three classes that drive handling policy:
//
//   - Transient: substrate hiccups (timeouts, lost connections) that a
//     caller may retry.
//   - Invalid: malformed input (liveliness keys from untrusted peers,
//     duplicate handles, bad names). Never retried; during discovery
//     these are logged and dropped rather than propagated.
//   - Fatal: construction and configuration failures. The owning object
//     is never published and partial resources are released.
//
// # Wrapping
//
// Use the Wrap* helpers to attach component/method/action context while
// preserving errors.Is/As chains:
//
//	return errors.WrapFatal(err, "Context", "Open", "bootstrap discovery")
//
// Sentinel errors (ErrShutdown, ErrDuplicateHandle, ErrMalformedKey, ...)
// are the stable contract for callers; message text is not.
package errors
