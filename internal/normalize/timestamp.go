package normalize

import (
	"fmt"
	"time"
)

const (
	// SourceLayout is the Hostaway submittedAt format; values carry no zone and are UTC.
	SourceLayout = "2006-01-02 15:04:05"
	// CanonicalLayout is ISO-8601 with millisecond precision and a Z designator.
	CanonicalLayout = "2006-01-02T15:04:05.000Z"
)

func canonicalTimestamp(s string) (string, error) {
	t, err := time.ParseInLocation(SourceLayout, s, time.UTC)
	// the parser tolerates fractional seconds the layout does not have
	if err != nil || t.Format(SourceLayout) != s {
		return "", fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return t.UTC().Format(CanonicalLayout), nil
}

// ParseCanonical parses a submittedAt value produced by the normalizer.
func ParseCanonical(s string) (time.Time, error) {
	return time.Parse(CanonicalLayout, s)
}
