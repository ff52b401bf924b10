package scans

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Stored payloads use deterministic CBOR so the same event always produces
// the same bytes. Timestamps keep nanoseconds and their offset.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("scans: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("scans: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeEvent(ev ScanEvent) ([]byte, error) {
	data, err := encMode.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode scan %s: %w", ev.ID, err)
	}
	return data, nil
}

func decodeEvent(data []byte) (ScanEvent, error) {
	var ev ScanEvent
	if err := decMode.Unmarshal(data, &ev); err != nil {
		return ScanEvent{}, fmt.Errorf("decode scan: %w", err)
	}
	return ev, nil
}
