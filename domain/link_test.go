package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinks_CloneIsIndependent(t *testing.T) {
	req := require.New(t)
	// Given a populated set of links
	links := Links{"0xabc": "amy"}

	// When the clone is mutated
	clone := links.Clone()
	clone["0xdef"] = "bob"
	delete(clone, "0xabc")

	// Then the original is untouched
	req.Equal(Links{"0xabc": "amy"}, links)
	req.NotNil(Links(nil).Clone())
}

func TestLinks_AddressOf(t *testing.T) {
	req := require.New(t)
	links := Links{"0xabc": "amy", "0xdef": "bob"}

	address, ok := links.AddressOf("bob")
	req.True(ok)
	req.Equal("0xdef", address)

	_, ok = links.AddressOf("carl")
	req.False(ok)
}

func TestLinks_AsListIsSorted(t *testing.T) {
	req := require.New(t)
	links := Links{"0xdef": "bob", "0xabc": "amy"}
	req.Equal([]IdentityLink{
		{Address: "0xabc", Identity: "amy"},
		{Address: "0xdef", Identity: "bob"},
	}, links.AsList())
}

func TestPage_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		page       Page
		length     int
		start, end int
	}{
		{name: "whole log", page: Page{}, length: 5, start: 0, end: 5},
		{name: "window", page: Page{Offset: 1, Limit: 2}, length: 5, start: 1, end: 3},
		{name: "limit past end", page: Page{Offset: 4, Limit: 10}, length: 5, start: 4, end: 5},
		{name: "offset past end", page: Page{Offset: 9, Limit: 1}, length: 5, start: 5, end: 5},
		{name: "negative offset", page: Page{Offset: -3}, length: 2, start: 0, end: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			start, end := tt.page.Bounds(tt.length)
			req.Equal(tt.start, start)
			req.Equal(tt.end, end)
		})
	}
}
