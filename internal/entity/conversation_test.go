package entity

import (
	"errors"
	"testing"
)

func TestNewConversationKey_Unordered(t *testing.T) {
	ab := NewConversationKey("alice", "bob")
	ba := NewConversationKey("bob", "alice")

	if ab != ba {
		t.Fatalf("keys differ: %q vs %q", ab, ba)
	}
	if ab.String() != "alice:bob" {
		t.Errorf("String() = %q, want %q", ab.String(), "alice:bob")
	}
}

func TestConversationKey_Peer(t *testing.T) {
	k := NewConversationKey("u2", "u1")

	if p, ok := k.Peer("u1"); !ok || p != "u2" {
		t.Errorf("Peer(u1) = %q, %v", p, ok)
	}
	if p, ok := k.Peer("u2"); !ok || p != "u1" {
		t.Errorf("Peer(u2) = %q, %v", p, ok)
	}
	if _, ok := k.Peer("u3"); ok {
		t.Error("Peer(u3) should not resolve")
	}
	if !k.Has("u1") || k.Has("u3") || k.Has("") {
		t.Error("Has() membership is wrong")
	}
}

func TestParseConversationKey(t *testing.T) {
	k, err := ParseConversationKey("a:b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != NewConversationKey("b", "a") {
		t.Errorf("parsed key %q mismatch", k)
	}

	for _, bad := range []string{"", "a", ":b", "a:", "b:a", "a:b:c", "alice:admin:bob", "a::b"} {
		if _, err := ParseConversationKey(bad); err == nil {
			t.Errorf("ParseConversationKey(%q) expected error", bad)
		}
	}
}

func TestConversationKey_TextRoundTrip(t *testing.T) {
	k := NewConversationKey("x", "y")

	b, err := k.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var got ConversationKey
	if err := got.UnmarshalText(b); err != nil {
		t.Fatal(err)
	}
	if got != k {
		t.Errorf("got %q, want %q", got, k)
	}
}

func TestCheckUserID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{id: "alice", valid: true},
		{id: "user-42@example.org", valid: true},
		{id: "", valid: false},
		{id: "alice:admin", valid: false},
		{id: ":", valid: false},
	}

	for _, tt := range tests {
		err := CheckUserID(tt.id)
		if (err == nil) != tt.valid {
			t.Errorf("CheckUserID(%q) = %v, want valid=%v", tt.id, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("CheckUserID(%q) = %v, want ErrInvalidUserID", tt.id, err)
		}
	}
}

func TestConversationKey_RoundTripsValidMembers(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"u-1", "u-10"},
		{"Zed", "amy"},
	}

	for _, p := range pairs {
		k := NewConversationKey(p[0], p[1])

		got, err := ParseConversationKey(k.String())
		if err != nil {
			t.Errorf("ParseConversationKey(%q): %v", k, err)
			continue
		}
		if got != k || !got.Has(p[0]) || !got.Has(p[1]) {
			t.Errorf("round trip of %v gave %q", p, got)
		}
	}
}
