package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSearchTokens(t *testing.T) {
	assert.Empty(t, ExtractSearchTokens("   "))
	assert.Equal(t, []string{"AB-12", "E1"}, ExtractSearchTokens(" ab-12, e1 "))
	assert.Equal(t, []string{"X"}, ExtractSearchTokens("x"))
}

func TestMatchHistoryEntry(t *testing.T) {
	entry := HistoryEntry{
		SerialNumber:  "AB-12",
		FaultCodeList: []string{"224-01", "113-02"},
	}

	assert.True(t, MatchHistoryEntry(entry, nil))
	assert.True(t, MatchHistoryEntry(entry, []string{"AB-12"}))
	assert.True(t, MatchHistoryEntry(entry, []string{"224"}))
	assert.True(t, MatchHistoryEntry(entry, []string{"AB", "113-02"}))
	assert.False(t, MatchHistoryEntry(entry, []string{"ZZ"}))
	assert.False(t, MatchHistoryEntry(entry, []string{"AB", "ZZ"}))
}

func TestMatchHistoryEntryFallsBackToTitle(t *testing.T) {
	entry := HistoryEntry{Title: "CD-34 – geen foutcodes"}
	assert.True(t, MatchHistoryEntry(entry, []string{"CD-34"}))
}

func TestMatchHistoryEntryEmptySearchSpace(t *testing.T) {
	assert.False(t, MatchHistoryEntry(HistoryEntry{}, []string{"X"}))
}

func TestFilterHistoryEntries(t *testing.T) {
	entries := []HistoryEntry{
		{ID: "1", SerialNumber: "AB-12"},
		{ID: "2", SerialNumber: "CD-34"},
		{ID: "3", SerialNumber: "AB-99"},
	}

	got := FilterHistoryEntries(entries, []string{"AB"})
	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	all := FilterHistoryEntries(entries, nil)
	assert.Len(t, all, 3)
}
