package nats

import (
	"encoding/json"
	"fmt"

	"github.com/tunogya/twin/pkg/model"
)

// Subject constants
const (
	SubjectSnapshotWrite = "twin.snapshots.write"
	SubjectPriceWrite    = "twin.prices.write"
)

// Subjects returns every subject the stream must carry
func Subjects() []string {
	return []string{SubjectSnapshotWrite, SubjectPriceWrite}
}

// SnapshotBatchMsg represents a batch snapshot write request
type SnapshotBatchMsg struct {
	Snapshots []model.Snapshot `json:"snapshots"`
}

// PriceBatchMsg represents a batch daily close write request
type PriceBatchMsg struct {
	Bars []model.PriceBar `json:"bars"`
}

// Encode serializes a message to JSON bytes
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeSnapshotBatch deserializes a SnapshotBatchMsg from JSON bytes
func DecodeSnapshotBatch(data []byte) (*SnapshotBatchMsg, error) {
	var msg SnapshotBatchMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	for i, s := range msg.Snapshots {
		if s.ID == "" {
			return nil, fmt.Errorf("snapshot %d has no stock_id", i)
		}
	}
	return &msg, nil
}

// DecodePriceBatch deserializes a PriceBatchMsg from JSON bytes
func DecodePriceBatch(data []byte) (*PriceBatchMsg, error) {
	var msg PriceBatchMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	for i, b := range msg.Bars {
		if b.InstrumentID == "" || b.Date.IsZero() {
			return nil, fmt.Errorf("bar %d needs stock_id and date", i)
		}
	}
	return &msg, nil
}
