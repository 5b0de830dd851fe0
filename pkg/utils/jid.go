package utils

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// IsGroupJID reports whether jid addresses a WhatsApp group.
func IsGroupJID(jid string) bool {
	return strings.Contains(jid, "@"+types.GroupServer)
}

// DigitsOnly drops every non-digit rune.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NormalizeRecipient returns the "number" field expected by the gateway:
// group JIDs verbatim, anything else reduced to digits.
func NormalizeRecipient(phone string) string {
	if IsGroupJID(phone) {
		return phone
	}
	return DigitsOnly(phone)
}

// BareNumber returns the user part of a JID (the portion before "@"),
// without any device suffix.
func BareNumber(jid string) string {
	jid = strings.TrimSpace(jid)
	if !strings.Contains(jid, "@") {
		return jid
	}
	parsed, err := types.ParseJID(jid)
	if err != nil || parsed.User == "" {
		return strings.SplitN(jid, "@", 2)[0]
	}
	return parsed.User
}

// CleanPhone removes the separators people usually type in phone numbers.
func CleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}
