package wire

import "errors"

// ErrUnknownVariant is returned when a frame's tag does not match any
// known ClientMsg/ServerMsg variant, or the frame is truncated partway
// through decoding a variant's fields. Callers treat this as a hard
// protocol error for the session.
var ErrUnknownVariant = errors.New("wire: unknown or malformed message variant")

// ErrDecode is returned by ApplyDelta when the delta is not a whole
// number of (count, value) pairs. ApplyDelta returns raw bytes; it does
// not decode them as any particular type.
var ErrDecode = errors.New("wire: decode failed")
