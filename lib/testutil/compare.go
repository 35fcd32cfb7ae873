// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// RefOptions compares lib/ref identifiers by value.
//
//	if diff := cmp.Diff(want, got, testutil.RefOptions); diff != "" { ... }
var RefOptions = cmp.Options{
	cmp.Comparer(func(a, b ref.MessageID) bool { return a == b }),
	cmp.Comparer(func(a, b ref.ConversationID) bool { return a == b }),
	cmp.Comparer(func(a, b ref.AtomID) bool { return a == b }),
}
