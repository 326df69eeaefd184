// Package ranges holds the pure byte-range arithmetic for splitting an
// object into fixed-size parts and for parsing client range strings.
package ranges

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crateops/objstream/internal/domain"
)

// PartRange is one contiguous slice of an object. End is inclusive.
type PartRange struct {
	Start  int64
	End    int64
	Length int64
}

// Header renders the range in the "bytes=<start>-<end>" wire format.
func (p PartRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", p.Start, p.End)
}

// Compute returns the absolute byte range of part partIndex for an object
// of totalLength bytes split into partSize slices. offsetBias shifts the
// whole layout when the client asked for a sub-range of the object rather
// than the whole thing.
//
// Invoked for partIndex = 0..ceil(totalLength/partSize)-1 the returned
// ranges are contiguous, non-overlapping and cover exactly
// [offsetBias, offsetBias+totalLength). Callers must validate sizes
// upstream; negative inputs are not defended against here.
func Compute(partIndex, totalLength, partSize, offsetBias int64) PartRange {
	start := partIndex*partSize + offsetBias

	end := (partIndex + 1) * partSize
	if totalLength < end {
		end = totalLength
	}
	end += offsetBias - 1

	return PartRange{
		Start:  start,
		End:    end,
		Length: end - start + 1,
	}
}

// ByteRange is a parsed client range. Unlike PartRange, Length follows the
// requested span (end minus start) so it can seed the part layout directly.
type ByteRange struct {
	Start  int64
	End    int64
	Length int64
}

// Parse accepts exactly the form "bytes=<start>-<end>" with both bounds
// non-negative integers and start <= end. Anything else fails with
// domain.ErrInvalidRange.
func Parse(s string) (ByteRange, error) {
	rest, ok := strings.CutPrefix(s, "bytes=")
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: %q", domain.ErrInvalidRange, s)
	}

	first, second, ok := strings.Cut(rest, "-")
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: %q", domain.ErrInvalidRange, s)
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, fmt.Errorf("%w: bad start in %q", domain.ErrInvalidRange, s)
	}

	end, err := strconv.ParseInt(second, 10, 64)
	if err != nil || end < 0 {
		return ByteRange{}, fmt.Errorf("%w: bad end in %q", domain.ErrInvalidRange, s)
	}

	if end < start {
		return ByteRange{}, fmt.Errorf("%w: reversed bounds in %q", domain.ErrInvalidRange, s)
	}

	return ByteRange{Start: start, End: end, Length: end - start}, nil
}
