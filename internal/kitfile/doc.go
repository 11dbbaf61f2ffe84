// Package kitfile models the KitOps Kitfile manifest.
//
// A Kitfile is loaded in three stages:
//   - YAML decoding, with top-level keys restricted to AllowedKeys
//   - structural checking against an embedded CUE schema (kitfile.cue)
//   - semantic validation against the context directory: every entry path
//     must exist and stay inside that directory
//
// Serialization keeps the manifest's section order and, by default, drops
// empty values. Digest gives a formatting-independent identity for a
// Kitfile based on canonical JSON.
package kitfile
