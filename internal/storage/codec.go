package storage

import (
	"encoding/json"
	"errors"

	"enzyflow/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the record header stamped on everything this package
// writes.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeEnzyme(r model.EnzymeRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeEnzyme(data []byte) (model.EnzymeRecord, error) {
	var record model.EnzymeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.EnzymeRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.EnzymeRecord{}, err
	}
	return record, nil
}

func EncodeDesignHistory(h model.DesignHistory) ([]byte, error) {
	return json.Marshal(h)
}

func DecodeDesignHistory(data []byte) (model.DesignHistory, error) {
	var history model.DesignHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return model.DesignHistory{}, err
	}
	if err := checkVersion(history.VersionedRecord); err != nil {
		return model.DesignHistory{}, err
	}
	return history, nil
}

func EncodeLineage(records []model.LineageRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	var records []model.LineageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
