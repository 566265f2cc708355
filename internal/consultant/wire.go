package consultant

import "encoding/json"

// flexID accepts both string and numeric ids on the wire; vendors are not
// consistent about which they emit.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())

	return nil
}

func (f flexID) String() string {
	return string(f)
}

// secretMatches passes vacuously when no secret is configured.
func secretMatches(configured, received string) bool {
	return configured == "" || configured == received
}

func containsString(values []string, v string) bool {
	for _, have := range values {
		if have == v {
			return true
		}
	}

	return false
}
