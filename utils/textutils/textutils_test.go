// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerAsciiFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"São Paulo", "sao paulo"},
		{"Hôpital Saint-Louis", "hopital saint-louis"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestContainsFolded(t *testing.T) {
	assert.True(t, ContainsFolded("", "anything"))
	assert.True(t, ContainsFolded("  ", "anything"))
	assert.True(t, ContainsFolded("sao", "Rio", "São Paulo"))
	assert.True(t, ContainsFolded("MERCY", "St. Mercy Hospital"))
	assert.False(t, ContainsFolded("boston", "New York", "Chicago"))
	assert.False(t, ContainsFolded("x"))
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "0", FormatInt(0))
	assert.Equal(t, "999", FormatInt(999))
	assert.Equal(t, "1,000", FormatInt(1000))
	assert.Equal(t, "1,234,567", FormatInt(1234567))
	assert.Equal(t, "-12,345", FormatInt(-12345))
}
