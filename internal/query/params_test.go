package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeParams(t *testing.T) {
	assert.Equal(t, "", EncodeParams(State{Page: 1}).Encode())
	assert.Equal(t, "page=3&q=acme+gmbh&sort=z-a", EncodeParams(State{Search: "acme gmbh", Sort: SortZA, Page: 3}).Encode())
}

func TestDecodeParams(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want State
	}{
		{"empty", "", State{Page: 1}},
		{"full", "q=berlin&sort=most-hiring&page=4", State{Search: "berlin", Sort: SortMostHiring, Page: 4}},
		{"bad page", "page=abc", State{Page: 1}},
		{"negative page", "page=-2", State{Page: 1}},
		{"malformed", "q=%zz", State{Page: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseState(tt.raw))
		})
	}
}

func TestParamsRoundTrip(t *testing.T) {
	in := State{Search: "ä & ö", Sort: SortNewest, Page: 7}
	v, err := url.ParseQuery(EncodeParams(in).Encode())
	assert.NoError(t, err)
	assert.Equal(t, in, DecodeParams(v))
}
