// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer.
//
//	conversation := testutil.UniqueID("conn")  // "conn-1", "conn-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// UniqueMessageID returns a message id built by [UniqueID].
func UniqueMessageID(prefix string) ref.MessageID {
	return ref.MustParseMessageID(UniqueID(prefix))
}
