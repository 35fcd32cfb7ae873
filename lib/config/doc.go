// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the debug
// bot.
//
// Configuration is loaded from a single file specified by either the
// DEBUGBOT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). Without either, the binary runs on [Default]. There
// is no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, production) that override base values when
// [Config].Environment matches. Production defaults are quieter:
// chatty small talk is off unless the production section turns it on.
//
// Durations are strings in time.ParseDuration syntax ("60s", "1m30s").
// The chatty schedule is a five-field cron expression. [Config.Validate]
// checks both and reports every problem at once.
//
// Variable expansion is performed on the store path after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// This package depends on no other debugbot packages.
package config
