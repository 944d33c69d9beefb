/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package curl converts a cURL command line into queue.RequestDescriptor.
package curl

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/acronis/go-apiconsole/queue"
)

// ErrNoURL is returned when the command contains no target URL.
var ErrNoURL = errors.New("curl command contains no URL")

// ErrUnterminatedQuote is returned when a quoted argument is not closed.
var ErrUnterminatedQuote = errors.New("curl command contains unterminated quote")

var lineContinuationRe = regexp.MustCompile(`\\\r?\n\s*`)

// Parse parses the cURL command text.
// Supported options are -X/--request, -H/--header and -d/--data/--data-raw/--data-binary.
// Other options are skipped. A body with the GET method switches the method to POST.
func Parse(command string) (queue.RequestDescriptor, error) {
	desc := queue.RequestDescriptor{Method: http.MethodGet, Headers: map[string]string{}}

	command = lineContinuationRe.ReplaceAllString(command, " ")
	args, err := splitArgs(command)
	if err != nil {
		return desc, err
	}
	if len(args) != 0 && args[0] == "curl" {
		args = args[1:]
	}

	var firstPlain string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := splitOption(arg)
		takeValue := func() (string, bool) {
			if hasValue {
				return value, true
			}
			if i+1 < len(args) {
				i++
				return args[i], true
			}
			return "", false
		}

		switch name {
		case "-X", "--request":
			if v, ok := takeValue(); ok {
				desc.Method = strings.ToUpper(v)
			}
		case "-H", "--header":
			if v, ok := takeValue(); ok {
				if key, val, found := strings.Cut(v, ":"); found && strings.TrimSpace(key) != "" {
					desc.Headers[strings.TrimSpace(key)] = strings.TrimSpace(val)
				}
			}
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			if v, ok := takeValue(); ok {
				desc.Body = strings.ReplaceAll(v, `\n`, "\n")
			}
		case "--url":
			if v, ok := takeValue(); ok && desc.URL == "" {
				desc.URL = v
			}
		case "":
			if desc.URL == "" && isHTTPURL(arg) {
				desc.URL = arg
			} else if firstPlain == "" {
				firstPlain = arg
			}
		default:
			if optionTakesValue(name) && !hasValue {
				i++
			}
		}
	}

	if desc.URL == "" {
		desc.URL = firstPlain
	}
	if desc.URL == "" {
		return desc, ErrNoURL
	}
	if desc.Body != "" && desc.Method == http.MethodGet {
		desc.Method = http.MethodPost
	}
	if len(desc.Headers) == 0 {
		desc.Headers = nil
	}
	return desc, nil
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// splitOption returns the option name and the attached value ("--request=PUT", "-XPUT").
// Name is empty for positional arguments.
func splitOption(arg string) (name, value string, hasValue bool) {
	switch {
	case !strings.HasPrefix(arg, "-") || arg == "-":
		return "", "", false
	case strings.HasPrefix(arg, "--"):
		if n, v, found := strings.Cut(arg, "="); found {
			return n, v, true
		}
		return arg, "", false
	case len(arg) > 2 && strings.ContainsRune("XHd", rune(arg[1])):
		return arg[:2], arg[2:], true
	default:
		return arg, "", false
	}
}

var optionsWithValue = map[string]bool{
	"-u": true, "--user": true, "-A": true, "--user-agent": true, "-e": true, "--referer": true,
	"-b": true, "--cookie": true, "-o": true, "--output": true, "-m": true, "--max-time": true,
	"--connect-timeout": true, "-x": true, "--proxy": true, "-F": true, "--form": true,
	"--cacert": true, "--cert": true, "--key": true, "-w": true, "--write-out": true,
}

func optionTakesValue(name string) bool {
	return optionsWithValue[name]
}

// splitArgs splits the command line like a POSIX shell does for quoting:
// single quotes are literal, double quotes and bare words support backslash escapes.
func splitArgs(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			if quote == '"' && r != '"' && r != '\\' && r != '$' && r != '`' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inArg = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, ErrUnterminatedQuote
	}
	if escaped {
		cur.WriteRune('\\')
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
