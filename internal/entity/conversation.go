package entity

import (
	"errors"
	"fmt"
	"strings"
)

const conversationKeySeparator = ":"

var ErrInvalidUserID = errors.New("invalid user id")

// CheckUserID rejects ids that cannot be a member of a conversation key.
func CheckUserID(id string) error {
	if id == "" {
		return fmt.Errorf("empty: %w", ErrInvalidUserID)
	}
	if strings.Contains(id, conversationKeySeparator) {
		return fmt.Errorf("%q contains %q: %w", id, conversationKeySeparator, ErrInvalidUserID)
	}

	return nil
}

// ConversationKey identifies the unordered pair of participants of a dyad.
// Both directions of a conversation map to the same key.
type ConversationKey struct {
	low  string
	high string
}

func NewConversationKey(a, b string) ConversationKey {
	if b < a {
		a, b = b, a
	}

	return ConversationKey{low: a, high: b}
}

func ParseConversationKey(s string) (ConversationKey, error) {
	a, b, ok := strings.Cut(s, conversationKeySeparator)
	if !ok || CheckUserID(a) != nil || CheckUserID(b) != nil {
		return ConversationKey{}, fmt.Errorf("invalid conversation key %q", s)
	}

	key := NewConversationKey(a, b)
	if key.String() != s {
		return ConversationKey{}, fmt.Errorf("conversation key %q is not canonical", s)
	}

	return key, nil
}

func (k ConversationKey) String() string {
	if k.IsZero() {
		return ""
	}

	return k.low + conversationKeySeparator + k.high
}

func (k ConversationKey) IsZero() bool {
	return k.low == "" && k.high == ""
}

func (k ConversationKey) Members() [2]string {
	return [2]string{k.low, k.high}
}

func (k ConversationKey) Has(userID string) bool {
	return userID != "" && (userID == k.low || userID == k.high)
}

// Peer returns the other participant of the conversation.
func (k ConversationKey) Peer(userID string) (string, bool) {
	switch userID {
	case k.low:
		return k.high, true
	case k.high:
		return k.low, true
	default:
		return "", false
	}
}

func (k ConversationKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ConversationKey) UnmarshalText(b []byte) error {
	key, err := ParseConversationKey(string(b))
	if err != nil {
		return err
	}
	*k = key

	return nil
}
