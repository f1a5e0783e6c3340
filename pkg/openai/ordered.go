package openai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// TokenProb pairs a token with its log probability.
type TokenProb struct {
	Token   string
	Logprob float64
}

// OrderedLogprobs is the top-k mapping at one token position, encoded on the
// wire as a JSON object {token: logprob}. Unlike a Go map it keeps the
// object's key order, which is the order alternatives are emitted in.
type OrderedLogprobs []TokenProb

// Get returns the log probability of token and whether it is present.
func (o OrderedLogprobs) Get(token string) (float64, bool) {
	for _, tp := range o {
		if tp.Token == token {
			return tp.Logprob, true
		}
	}
	return 0, false
}

// MarshalJSON encodes the pairs as a JSON object in slice order.
func (o OrderedLogprobs) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tp := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tp.Token)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(tp.Logprob)
		if err != nil {
			return nil, fmt.Errorf("top_logprobs[%q]: %w", tp.Token, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving document key order.
// A null value decodes to a nil mapping.
func (o *OrderedLogprobs) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("top_logprobs: invalid JSON")
	}
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		*o = nil
		return nil
	}
	if !res.IsObject() {
		return fmt.Errorf("top_logprobs: expected object, got %s", res.Type)
	}

	out := OrderedLogprobs{}
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = fmt.Errorf("top_logprobs[%q]: expected number, got %s", key.String(), value.Type)
			return false
		}
		out = append(out, TokenProb{Token: key.String(), Logprob: value.Float()})
		return true
	})
	if err != nil {
		return err
	}
	*o = out
	return nil
}
