// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for debugbot packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. Everything
// else in the test suite runs on the fake clock in lib/clock.
//
// [UniqueID] and [UniqueMessageID] generate monotonically increasing
// identifiers for test disambiguation.
//
// [RefOptions] lets go-cmp compare values holding the opaque
// identifiers of lib/ref, whose fields are unexported.
//
// [WriteFile] places a fixture or config file in a per-test temporary
// directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
