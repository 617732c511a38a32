package registry

import (
	"bytes"
	"encoding/json"
)

// jsonDecode rejects fields the payload type does not declare, so a
// producer writing the wrong struct is caught before publish.
func jsonDecode(raw []byte, into any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}
