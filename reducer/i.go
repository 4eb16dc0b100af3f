package reducer

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type DataType int

const (
	DataTypeSingleValue DataType = iota
	DataTypeGPS
)

func (t DataType) String() string {
	switch t {
	case DataTypeSingleValue:
		return "single_value"
	case DataTypeGPS:
		return "gps"
	}

	return "unknown"
}

func (t DataType) MarshalText() ([]byte, error) {
	if t != DataTypeSingleValue && t != DataTypeGPS {
		return nil, ErrInvalidDataType
	}

	return []byte(t.String()), nil
}

func (t *DataType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "single_value", "single", "value":
		*t = DataTypeSingleValue
	case "gps", "location":
		*t = DataTypeGPS
	default:
		return ErrInvalidDataType
	}

	return nil
}

func (t *DataType) UnmarshalYAML(value *yaml.Node) error {
	return t.UnmarshalText([]byte(value.Value))
}

// FNRetained is called synchronously, in the AddPoint/Reduce call stack, for every retained point.
type FNRetained func(p Point)

type Stats struct {
	Added    int `json:"added" yaml:"added"`
	Retained int `json:"retained" yaml:"retained"`
	Dropped  int `json:"dropped" yaml:"dropped"`
	Rejected int `json:"rejected" yaml:"rejected"`
	Passes   int `json:"passes" yaml:"passes"`
}
