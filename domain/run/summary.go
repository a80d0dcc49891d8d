package run

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ParameterSummary describes the posterior marginal of one parameter
type ParameterSummary struct {
	Index  int     `json:"index"`
	Label  string  `json:"label"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	ESS    float64 `json:"ess"`
}

// Summaries is stored as a JSONB column. Values are sent as text so the
// driver does not use the binary jsonb encoding.
type Summaries []ParameterSummary

// Value implements driver.Valuer
func (s Summaries) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

// Scan implements sql.Scanner
func (s *Summaries) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Floats is a float vector stored as a JSONB column
type Floats []float64

// Value implements driver.Valuer
func (f Floats) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	return string(b), err
}

// Scan implements sql.Scanner
func (f *Floats) Scan(value interface{}) error {
	return scanJSON(value, f)
}

func scanJSON(value interface{}, dst interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", value)
	}
	return json.Unmarshal(bytes, dst)
}
