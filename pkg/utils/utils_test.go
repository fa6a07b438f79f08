package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"", 5, ""},
		{"abc", 2, "ab"},
		{"abc", 3, "abc"},
	}

	for _, tt := range tests {
		result := TruncateString(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("TruncateString(%q, %d) = %q; want %q", tt.input, tt.length, result, tt.expected)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123", "123"},
		{"1234", "1,234"},
		{"1234567", "1,234,567"},
		{"1234.56", "1,234.56"},
		{"-1234", "-1,234"},
		{"", ""},
	}

	for _, tt := range tests {
		result := AddCommas(tt.input)
		if result != tt.expected {
			t.Errorf("AddCommas(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		input    string
		decimals int
		expected string
	}{
		{"0xDE0B6B3A7640000", 4, "1"},
		{"0xde0b6b3a7640000", 18, "1"},
		{"0x0", 4, "0"},
		{"0x22B1C8C1227A0000", 4, "2.5"},
		{"0x1", 18, "0.000000000000000001"},
		{"0x1", 4, "0.000000000000000001"},
		{"0x5af3107a3fff", 4, "0.00009"},
		{"0x38d7ea4c68000", 0, "0.001"},
		{"0x1BC16D674EC80001", 2, "2"},
		{"0x1BC16D674EC80000", 2, "2"},
		{"0x2386F26FC10000", 4, "0.01"},
		{"0x2386F26FC10000", 1, "0.01"},
		{"0x00DE0B6B3A7640000", 4, "1"},
		{"0x1234", -1, "0.00000000000000466"},
		{"not-hex", 4, "not-hex"},
		{"", 4, ""},
	}

	for _, tt := range tests {
		result := FormatBalance(tt.input, tt.decimals)
		if result != tt.expected {
			t.Errorf("FormatBalance(%q, %d) = %q; want %q", tt.input, tt.decimals, result, tt.expected)
		}
	}
}

func TestFormatChainAsNum(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0x1", "1"},
		{"0x89", "137"},
		{"0xaa36a7", "11155111"},
		{"0x01", "1"},
		{"0x", "NaN"},
		{"137", "NaN"},
		{"", "NaN"},
	}

	for _, tt := range tests {
		result := FormatChainAsNum(tt.input)
		if result != tt.expected {
			t.Errorf("FormatChainAsNum(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseChainID(t *testing.T) {
	id, err := ParseChainID("0x89")
	require.NoError(t, err)
	assert.Equal(t, int64(137), id.Int64())

	_, err = ParseChainID("0xzz")
	assert.Error(t, err)
}
