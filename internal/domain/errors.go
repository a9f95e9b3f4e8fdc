// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist upstream.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates invalid caller input (bad id, non-positive TTL, empty key set).
var ErrValidation = errors.New("validation")

// ErrUpstream indicates the upstream backend failed or returned a non-2xx status.
var ErrUpstream = errors.New("upstream unavailable")

// ErrMalformed indicates an upstream payload could not be decoded or aggregated.
var ErrMalformed = errors.New("malformed upstream payload")

// ErrPatternUnsupported is returned by cache stores that cannot enumerate keys.
var ErrPatternUnsupported = errors.New("pattern invalidation not supported by cache backend")
