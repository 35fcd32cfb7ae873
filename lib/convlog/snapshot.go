// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convlog

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/debugbot/lib/codec"
)

// snapshotVersion is written as the first CBOR item of every snapshot.
const snapshotVersion = 1

type snapshotHeader struct {
	Version int `json:"version"`
	Count   int `json:"count"`
}

// WriteSnapshot writes messages to w as a zstd-compressed CBOR
// stream: a header followed by one item per message, in Compare order.
func WriteSnapshot(w io.Writer, messages []Message) error {
	compressor, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	encoder := codec.NewEncoder(compressor)
	if err := encoder.Encode(snapshotHeader{Version: snapshotVersion, Count: len(messages)}); err != nil {
		compressor.Close()
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	for _, message := range Sorted(messages) {
		if err := encoder.Encode(message); err != nil {
			compressor.Close()
			return fmt.Errorf("writing message %s: %w", message.ID, err)
		}
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot. Every
// message is validated; a truncated stream is an error.
func ReadSnapshot(r io.Reader) ([]Message, error) {
	decompressor, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer decompressor.Close()

	decoder := codec.NewDecoder(decompressor)
	var header snapshotHeader
	if err := decoder.Decode(&header); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if header.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}

	messages := make([]Message, 0, header.Count)
	for range header.Count {
		var message Message
		if err := decoder.Decode(&message); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("snapshot truncated after %d of %d messages", len(messages), header.Count)
			}
			return nil, fmt.Errorf("reading message %d: %w", len(messages), err)
		}
		if err := message.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot message %d: %w", len(messages), err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}
