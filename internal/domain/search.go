package domain

import (
	"strings"

	"github.com/aimylabs/aimy/internal/prechat"
)

// ExtractSearchTokens splits a history-search query into normalized tokens.
func ExtractSearchTokens(query string) []string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []string{}
	}
	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := prechat.NormalizeSerial(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// MatchHistoryEntry reports whether an entry matches all search tokens,
// looking at its serial number (falling back to the title) and fault codes.
func MatchHistoryEntry(entry HistoryEntry, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	serial := entry.SerialNumber
	if serial == "" {
		serial = entry.Title
	}
	faults := prechat.FormatFaultCodes(prechat.EnsureFaultCodeList(entry.FaultCodeList))
	if faults == "" {
		faults = entry.FaultCodes
	}
	searchSpace := prechat.NormalizeSerial(serial + " " + faults)
	if strings.TrimSpace(searchSpace) == "" {
		return false
	}
	for _, token := range tokens {
		if !strings.Contains(searchSpace, token) {
			return false
		}
	}
	return true
}

// FilterHistoryEntries returns the entries matching all tokens, preserving
// order. An empty token list returns a copy of the input.
func FilterHistoryEntries(entries []HistoryEntry, tokens []string) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if MatchHistoryEntry(entry, tokens) {
			out = append(out, entry)
		}
	}
	return out
}
