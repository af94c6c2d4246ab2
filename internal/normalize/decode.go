package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"flex_reviews/internal/domain"
)

// DecodeBatch reads a raw batch, either a bare JSON array or the Hostaway
// envelope {"status": "...", "result": [...]}. Anything that is not a sequence
// of objects is ErrInvalidBatch.
func DecodeBatch(r io.Reader) ([]domain.RawReview, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)

	var items []json.RawMessage
	switch {
	case len(body) > 0 && body[0] == '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBatch, err)
		}
	case len(body) > 0 && body[0] == '{':
		var env struct {
			Result *[]json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBatch, err)
		}
		if env.Result == nil {
			return nil, fmt.Errorf("%w: envelope has no result array", domain.ErrInvalidBatch)
		}
		items = *env.Result
	default:
		return nil, fmt.Errorf("%w: expected array of review objects", domain.ErrInvalidBatch)
	}

	out := make([]domain.RawReview, 0, len(items))
	for i, it := range items {
		it = bytes.TrimSpace(it)
		if len(it) == 0 || it[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", domain.ErrInvalidBatch, i)
		}
		var rv domain.RawReview
		if err := json.Unmarshal(it, &rv); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", domain.ErrInvalidBatch, i, err)
		}
		out = append(out, rv)
	}
	return out, nil
}
