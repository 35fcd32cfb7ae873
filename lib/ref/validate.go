// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"unicode"
)

// maxLength bounds every identifier. Message URIs in practice stay
// well under a few hundred bytes.
const maxLength = 2048

// validateOpaque checks the shared constraints of every identifier
// type. kind names the type in error messages.
func validateOpaque(kind, raw string) error {
	if raw == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if len(raw) > maxLength {
		return fmt.Errorf("%s is %d bytes, maximum is %d", kind, len(raw), maxLength)
	}
	for index, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%s %q has invalid character %U at offset %d", kind, raw, r, index)
		}
	}
	return nil
}
