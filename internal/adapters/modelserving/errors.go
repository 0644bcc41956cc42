package modelserving

import "errors"

// Sentinel errors for model-serving calls.
var (
	ErrUnknownCodec = errors.New("unknown codec")
	ErrStatus       = errors.New("unexpected status")
	ErrDecode       = errors.New("decode response")
)
