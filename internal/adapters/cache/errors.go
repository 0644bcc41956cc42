package cache

import "errors"

// ErrCacheMiss reports that no live entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")
