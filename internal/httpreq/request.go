package httpreq

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// MaxHeaderBytes caps the request line plus headers.
const MaxHeaderBytes = 64 << 10

// Header is one request header as sent by the client.
type Header struct {
	Name  string
	Value string
}

// Request is the parsed header block of a proxied request.
type Request struct {
	Method  string // upper-cased
	Target  string // verbatim request-target
	Version string // verbatim
	Headers []Header
}

// Get returns the value of the first header named name, case-insensitively.
func (r *Request) Get(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// ReadHeader reads from r up to and including the CRLFCRLF that ends the
// header block. Nothing past the terminator is consumed.
func ReadHeader(r io.ByteReader) ([]byte, error) {
	buf := make([]byte, 0, 1024)
	state := 0 // bytes of "\r\n\r\n" matched so far

	for len(buf) < MaxHeaderBytes {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrIncompleteHeader
			}
			return nil, fmt.Errorf("read request headers: %w", err)
		}
		buf = append(buf, c)

		switch {
		case c == '\r' && (state == 0 || state == 2):
			state++
		case c == '\n' && (state == 1 || state == 3):
			state++
		case c == '\r':
			state = 1
		default:
			state = 0
		}
		if state == 4 {
			return buf, nil
		}
	}

	return nil, ErrHeaderTooLarge
}

// Parse decodes a header block read by ReadHeader.
//
// The request line must have at least three space-separated tokens. Header
// lines without a name before the colon are skipped.
func Parse(block []byte) (*Request, error) {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(block)
	if err != nil {
		return nil, fmt.Errorf("decode request headers: %w", err)
	}
	lines := strings.Split(string(text), "\r\n")

	requestLine := strings.TrimSpace(lines[0])
	if requestLine == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedRequestLine)
	}
	parts := strings.Split(requestLine, " ")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, requestLine)
	}

	var headers []Header
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		headers = append(headers, Header{
			Name:  strings.TrimSpace(line[:i]),
			Value: strings.TrimSpace(line[i+1:]),
		})
	}

	return &Request{
		Method:  strings.ToUpper(parts[0]),
		Target:  parts[1],
		Version: parts[2],
		Headers: headers,
	}, nil
}

// ReadRequest reads and parses one header block from r.
func ReadRequest(r io.ByteReader) (*Request, error) {
	block, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return Parse(block)
}
