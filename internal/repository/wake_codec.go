package repository

import (
	"fmt"

	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/fxamacker/cbor/v2"
)

var (
	wakeEncMode cbor.EncMode
	wakeDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	wakeEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create wake payload encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	wakeDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create wake payload decoder mode: %v", err))
	}
}

// EncodeWakePayload encodes a payload with integer map keys.
func EncodeWakePayload(p domain.WakePayload) ([]byte, error) {
	return wakeEncMode.Marshal(p)
}

func DecodeWakePayload(data []byte) (domain.WakePayload, error) {
	var p domain.WakePayload
	if err := wakeDecMode.Unmarshal(data, &p); err != nil {
		return domain.WakePayload{}, err
	}
	return p, nil
}
