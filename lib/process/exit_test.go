// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type usageError struct{ message string }

func (e usageError) Error() string { return e.message }
func (e usageError) ExitCode() int { return 2 }

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"coder", usageError{"bad flag"}, 2},
		{"wrapped coder", fmt.Errorf("parsing flags: %w", usageError{"bad flag"}), 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCode(test.err); got != test.want {
				t.Errorf("ExitCode(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	Report(&buffer, nil)
	if buffer.Len() != 0 {
		t.Fatalf("Report(nil) wrote %q", buffer.String())
	}
	Report(&buffer, errors.New("store unavailable"))
	if got, want := buffer.String(), "error: store unavailable\n"; got != want {
		t.Errorf("Report wrote %q, want %q", got, want)
	}
}
