package models

import orderedmap "github.com/wk8/go-ordered-map/v2"

// Record is one extracted record. Keys keep the order of the field mapping,
// and values are string, nil, []string or [][]string.
type Record = orderedmap.OrderedMap[string, any]

// NewRecord returns an empty record sized for n fields.
func NewRecord(n int) *Record {
	return orderedmap.New[string, any](n)
}

// Outcome is the result of one pipeline run. Exactly one of Record/Records
// is meaningful on success, selected by List; Err is set on failure.
type Outcome struct {
	Record  *Record
	Records []*Record
	List    bool
	Err     error
}

// Failed returns an Outcome carrying err.
func Failed(err error) Outcome {
	return Outcome{Err: err}
}
