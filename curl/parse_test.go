/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package curl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/queue"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    queue.RequestDescriptor
	}{
		{
			name:    "bare url",
			command: "curl https://api.example.com/users",
			want:    queue.RequestDescriptor{URL: "https://api.example.com/users", Method: "GET"},
		},
		{
			name:    "quoted url with query",
			command: `curl 'https://api.example.com/users?page=2&size=10'`,
			want:    queue.RequestDescriptor{URL: "https://api.example.com/users?page=2&size=10", Method: "GET"},
		},
		{
			name: "multiline with headers, method and body",
			command: "curl -X put 'https://api.example.com/users/1' \\\n" +
				"  -H 'Content-Type: application/json' \\\n" +
				"  -H \"Authorization: Bearer abc\" \\\n" +
				"  --data-raw '{\"name\":\"bob\"}'",
			want: queue.RequestDescriptor{
				URL:     "https://api.example.com/users/1",
				Method:  "PUT",
				Headers: map[string]string{"Content-Type": "application/json", "Authorization": "Bearer abc"},
				Body:    `{"name":"bob"}`,
			},
		},
		{
			name:    "body switches GET to POST",
			command: `curl https://api.example.com/items -d '{"a":1}'`,
			want:    queue.RequestDescriptor{URL: "https://api.example.com/items", Method: "POST", Body: `{"a":1}`},
		},
		{
			name:    "escaped quotes in double-quoted body",
			command: `curl https://api.example.com/items --data "{\"a\":\"b\"}"`,
			want:    queue.RequestDescriptor{URL: "https://api.example.com/items", Method: "POST", Body: `{"a":"b"}`},
		},
		{
			name:    "literal newline escape in body",
			command: `curl https://api.example.com/items -d 'line1\nline2'`,
			want:    queue.RequestDescriptor{URL: "https://api.example.com/items", Method: "POST", Body: "line1\nline2"},
		},
		{
			name:    "unquoted header and attached options",
			command: `curl -XDELETE -H X-Token:secret --url=https://api.example.com/x`,
			want: queue.RequestDescriptor{
				URL: "https://api.example.com/x", Method: "DELETE", Headers: map[string]string{"X-Token": "secret"},
			},
		},
		{
			name:    "url without scheme",
			command: `curl -u user:pass -s localhost:8080/health`,
			want:    queue.RequestDescriptor{URL: "localhost:8080/health", Method: "GET"},
		},
		{
			name:    "without curl prefix",
			command: `-X PATCH http://127.0.0.1:9000/a --header 'Accept: */*'`,
			want: queue.RequestDescriptor{
				URL: "http://127.0.0.1:9000/a", Method: "PATCH", Headers: map[string]string{"Accept": "*/*"},
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.command)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("curl -X POST -H 'Accept: */*'")
	require.ErrorIs(t, err, ErrNoURL)

	_, err = Parse("   ")
	require.ErrorIs(t, err, ErrNoURL)

	_, err = Parse(`curl 'https://api.example.com`)
	require.ErrorIs(t, err, ErrUnterminatedQuote)
}
