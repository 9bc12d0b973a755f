package flow

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ledgerflow/flowchart/pkg/errors"
)

// Record is one raw reporting-interval payload record as produced by the
// upstream query engine. Both fields are JSON-encoded strings: NodesSS
// decodes to an array of account IDs, LinksSS to an array of
// [source, target, valueToken] tuples.
type Record struct {
	NodesSS string `json:"nodes_ss"`
	LinksSS string `json:"links_ss"`
}

// DecodePayload parses the top-level payload: a JSON array of records.
// A payload that is not an array of {nodes_ss, links_ss} objects is a schema
// violation and rejects the whole chart; there is no partial render.
func DecodePayload(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPayload, err, "payload is not an array of records")
	}
	return records, nil
}

// ReadPayload decodes a payload from an io.Reader.
func ReadPayload(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read payload")
	}
	return DecodePayload(data)
}

// ReadPayloadFile decodes a payload from a JSON file.
func ReadPayloadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadPayload(f)
}
