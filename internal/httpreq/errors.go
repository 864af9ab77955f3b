package httpreq

import "errors"

var (
	ErrHeaderTooLarge       = errors.New("request headers too large")
	ErrIncompleteHeader     = errors.New("client closed before sending request headers")
	ErrMalformedRequestLine = errors.New("invalid request line")
	ErrMissingHost          = errors.New("missing target host")
	ErrInvalidAuthority     = errors.New("invalid authority")
)
