// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMessageID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://node.example/msg/abc123", false},
		{"msg:1", false},
		{"P1", false},
		{"", true},
		{"has space", true},
		{"tab\there", true},
		{"newline\n", true},
		{strings.Repeat("x", maxLength), false},
		{strings.Repeat("x", maxLength+1), true},
	}

	for _, test := range tests {
		_, err := ParseMessageID(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseMessageID(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
		}
	}
}

func TestParseConversationAndAtom(t *testing.T) {
	if _, err := ParseConversationID("conn:1"); err != nil {
		t.Errorf("ParseConversationID: %v", err)
	}
	if _, err := ParseConversationID(""); err == nil {
		t.Error("ParseConversationID(\"\") succeeded, want error")
	}
	if _, err := ParseAtomID("atom:bot"); err != nil {
		t.Errorf("ParseAtomID: %v", err)
	}
	if _, err := ParseAtomID("atom bot"); err == nil {
		t.Error("ParseAtomID with space succeeded, want error")
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseMessageID(\"\") did not panic")
		}
	}()
	MustParseMessageID("")
}

func TestZeroValue(t *testing.T) {
	var id MessageID
	if !id.IsZero() {
		t.Error("zero MessageID: IsZero() = false")
	}
	if id.String() != "" {
		t.Errorf("zero MessageID: String() = %q, want empty", id.String())
	}
	if MustParseMessageID("m").IsZero() {
		t.Error("parsed MessageID: IsZero() = true")
	}
}

func TestCompare(t *testing.T) {
	a := MustParseMessageID("a")
	b := MustParseMessageID("b")
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("Compare ordering wrong: a<b=%d b>a=%d a=a=%d", a.Compare(b), b.Compare(a), a.Compare(a))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type envelope struct {
		Message      MessageID      `json:"message"`
		Conversation ConversationID `json:"conversation"`
		Sender       AtomID         `json:"sender"`
		Missing      MessageID      `json:"missing"`
	}
	original := envelope{
		Message:      MustParseMessageID("msg:1"),
		Conversation: MustParseConversationID("conn:1"),
		Sender:       MustParseAtomID("atom:you"),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"message":"msg:1","conversation":"conn:1","sender":"atom:you","missing":""}`; string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var decoded envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}

	if err := json.Unmarshal([]byte(`{"message":"bad id"}`), &decoded); err == nil {
		t.Error("Unmarshal of invalid id succeeded, want error")
	}
}
