// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers of the debugbot binary:
// reporting the error that ended run() and choosing the exit code.
// They write to stderr directly because the structured logger may not
// exist yet when startup fails.
package process
