package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		body string
		want []string
	}{
		{"hello @alice", []string{"alice"}},
		{"@alice and @bob_2", []string{"alice", "bob_2"}},
		{"@alice @alice again", []string{"alice"}},
		{"email me at foo@example.com", nil},
		{"no mentions here", nil},
		{"dangling @ sign", nil},
		{"@alice, punctuation stops the name", []string{"alice"}},
		{"(@alice) in brackets", []string{"alice"}},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractMentions(tc.body), "body: %q", tc.body)
	}
}
