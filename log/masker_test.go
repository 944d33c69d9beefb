/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMasker_DefaultRules(t *testing.T) {
	masker := NewMasker(DefaultMasks)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "http header",
			in:   "GET /api/v1 HTTP/1.1\r\nX-API-Token-Secret: s3cr3t\r\nAccept: */*\r\n",
			want: "GET /api/v1 HTTP/1.1\r\nX-API-Token-Secret: ***\r\nAccept: */*\r\n",
		},
		{
			name: "http header at the end of text",
			in:   "authorization: Bearer abc.def",
			want: "authorization: ***",
		},
		{
			name: "json",
			in:   `{"login":"admin","password":"qwerty","x-api-token-secret":"abc"}`,
			want: `{"login":"admin","password": "***","X-API-Token-Secret": "***"}`,
		},
		{
			name: "url encoded",
			in:   "grant_type=password&client_secret=xyz&refresh_token=tok",
			want: "grant_type=password&client_secret=***&refresh_token=***",
		},
		{
			name: "nothing to mask",
			in:   "POST https://api.example.com/v1/items completed",
			want: "POST https://api.example.com/v1/items completed",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.in))
		})
	}
}

func TestMasker_CustomMask(t *testing.T) {
	masker := NewMasker([]MaskingRuleConfig{{
		Field: "api_key",
		Masks: []MaskConfig{{RegExp: `api_key/[a-z0-9]+`, Mask: "api_key/***"}},
	}})
	require.Equal(t, "GET /keys/api_key/***/info", masker.Mask("GET /keys/api_key/abc123/info"))
	require.Equal(t, "nothing here", NewMasker(nil).Mask("nothing here"))
}
