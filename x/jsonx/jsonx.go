package jsonx

import (
	"encoding/json"
	"fmt"
)

// Decode fills dst from a bus payload: raw JSON bytes or string, or an
// already decoded value that is re-marshalled.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("empty payload")
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case T:
		*dst = v
		return nil
	case *T:
		if v == nil {
			return fmt.Errorf("nil %T payload", v)
		}
		*dst = *v
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
