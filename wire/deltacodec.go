package wire

// Delta and ApplyDelta implement the payload-level RLE delta codec: a
// byte-wise modulo-256 difference between two buffers, run-length
// encoded as (count, value) pairs. Applications use this to shrink
// CustomMsg payloads that change incrementally between ticks (e.g. a
// serialized entity snapshot); the runtime itself never calls these.

// Delta computes the run-length-encoded modulo-256 difference between
// newBuf and oldBuf. Missing bytes in the shorter buffer are treated as
// zero on that side.
func Delta(newBuf, oldBuf []byte) []byte {
	n := len(newBuf)
	if len(oldBuf) > n {
		n = len(oldBuf)
	}

	diff := make([]byte, n)
	for i := 0; i < n; i++ {
		var nv, ov byte
		if i < len(newBuf) {
			nv = newBuf[i]
		}
		if i < len(oldBuf) {
			ov = oldBuf[i]
		}
		diff[i] = nv - ov
	}

	return runLengthEncode(diff)
}

func runLengthEncode(diff []byte) []byte {
	if len(diff) == 0 {
		return nil
	}

	out := make([]byte, 0, len(diff)/2+2)
	count := byte(0)
	value := diff[0]

	flush := func() {
		if count > 0 {
			out = append(out, count, value)
		}
	}

	for _, v := range diff {
		if v != value || count == 255 {
			flush()
			value = v
			count = 0
		}
		count++
	}
	flush()

	return out
}

// ApplyDelta reconstructs the new buffer from an RLE delta produced by
// Delta and the old buffer it was computed against.
func ApplyDelta(delta, oldBuf []byte) ([]byte, error) {
	diff, err := runLengthDecode(delta)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(diff))
	for i, d := range diff {
		var ov byte
		if i < len(oldBuf) {
			ov = oldBuf[i]
		}
		out[i] = ov + d
	}

	return out, nil
}

func runLengthDecode(rle []byte) ([]byte, error) {
	if len(rle)%2 != 0 {
		return nil, ErrDecode
	}

	var out []byte
	for i := 0; i < len(rle); i += 2 {
		count, value := rle[i], rle[i+1]
		for c := byte(0); c < count; c++ {
			out = append(out, value)
		}
	}

	return out, nil
}
