// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the one CBOR configuration the debug bot uses
// for everything it writes to disk: message payloads in the log store
// and conversation snapshots.
//
// Encoding is Core Deterministic (RFC 8949 §4.2), so the same message
// always produces the same bytes. The validate command relies on this
// when it digests a crawled log. Typed identifiers from lib/ref travel
// as text strings, and timestamps as RFC 3339 strings with nanosecond
// precision.
//
//	data, err := codec.Marshal(message)
//	err = codec.Unmarshal(data, &message)
//
// For snapshot files, which hold a sequence of items, use NewEncoder
// and NewDecoder.
package codec
