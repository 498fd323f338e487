package ioutil

import (
	"fmt"
	"io"
)

// ReadLimited drains at most limit bytes from r into a string. A read
// failure yields a placeholder describing the error rather than an empty
// string, so provider response bodies quoted in logs stay informative.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(body)
}
