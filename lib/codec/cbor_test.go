// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

type payload struct {
	ID      ref.MessageID   `cbor:"id"`
	Sender  ref.AtomID      `cbor:"sender"`
	At      time.Time       `cbor:"at"`
	Effects []ref.MessageID `cbor:"effects,omitempty"`
	Text    string          `cbor:"text,omitempty"`
}

func samplePayload() payload {
	return payload{
		ID:      ref.MustParseMessageID("msg:2"),
		Sender:  ref.MustParseAtomID("atom:you"),
		At:      time.Date(2026, 3, 4, 5, 6, 7, 890123456, time.UTC),
		Effects: []ref.MessageID{ref.MustParseMessageID("msg:1")},
		Text:    "propose",
	}
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := samplePayload()
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded payload
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != original.ID || decoded.Sender != original.Sender || decoded.Text != original.Text {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
	if !decoded.At.Equal(original.At) {
		t.Errorf("At = %v, want %v (nanoseconds must survive)", decoded.At, original.At)
	}
	if len(decoded.Effects) != 1 || decoded.Effects[0] != original.Effects[0] {
		t.Errorf("Effects = %v, want %v", decoded.Effects, original.Effects)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(map[string]int{"c": 3, "a": 1, "b": 2})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding not deterministic: %x vs %x", first, again)
		}
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, text := range []string{"one", "two", "three"} {
		item := samplePayload()
		item.Text = text
		if err := encoder.Encode(item); err != nil {
			t.Fatalf("Encode(%q): %v", text, err)
		}
	}

	decoder := NewDecoder(&buffer)
	var texts []string
	for {
		var item payload
		err := decoder.Decode(&item)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		texts = append(texts, item.Text)
	}
	if len(texts) != 3 || texts[0] != "one" || texts[2] != "three" {
		t.Errorf("decoded texts = %v, want [one two three]", texts)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var decoded payload
	if err := Unmarshal([]byte{0xff, 0x00}, &decoded); err == nil {
		t.Error("Unmarshal of garbage succeeded, want error")
	}
}
