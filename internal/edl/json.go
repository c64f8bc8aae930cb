package edl

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalJSON accepts fade shapes case-insensitively ("linear",
// "Linear", "LINEAR" all normalize to FadeLinear) per §6's JSON form rule
// that enum parsing is case-insensitive.
func (s *FadeShape) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch strings.ToUpper(raw) {
	case string(FadeLinear):
		*s = FadeLinear
	case string(FadeEqualPower):
		*s = FadeEqualPower
	default:
		return fmt.Errorf("unknown fade shape %q", raw)
	}
	return nil
}

// ParseEdl decodes the wire JSON form of an EDL, rejecting unknown fields
// per §6.
func ParseEdl(data []byte) (Edl, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var e Edl
	if err := dec.Decode(&e); err != nil {
		return Edl{}, err
	}
	return e, nil
}

// CanonicalJSON renders the EDL with revision cleared, the form hashed to
// produce a Snapshot's revision and used as the external JSON
// representation for tooling.
func CanonicalJSON(e Edl) ([]byte, error) {
	e.Revision = ""
	return json.Marshal(e)
}

// ComputeRevision returns the first 12 lowercase hex characters of the
// SHA-256 digest of the EDL's canonical JSON form.
func ComputeRevision(e Edl) (string, error) {
	canon, err := CanonicalJSON(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:12], nil
}
