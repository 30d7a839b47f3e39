package encoding

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// AppendRLE appends (id, run_len) uvarint pairs for ids to dst.
func AppendRLE(dst []byte, ids []uint16) []byte {
	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b && run < 1<<31; j++ {
			run++
		}
		dst = binary.AppendUvarint(dst, uint64(b))
		dst = binary.AppendUvarint(dst, uint64(run))
		i += run
	}
	return dst
}

// DecodeRLEBytes expands uvarint pairs produced by AppendRLE. Decoding fails
// once the output would exceed limit ids (limit <= 0 disables the check).
func DecodeRLEBytes(raw []byte, limit int) ([]uint16, error) {
	var out []uint16
	if limit > 0 {
		out = make([]uint16, 0, limit)
	}
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("id too large: %d", b)
		}
		if run == 0 {
			return nil, fmt.Errorf("zero-length run at %d", i)
		}
		if limit > 0 && uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run overflows %d ids", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(b))
		}
	}
	return out, nil
}

// EncodeRLE is AppendRLE wrapped in base64, for JSON transports.
func EncodeRLE(ids []uint16) string {
	return base64.StdEncoding.EncodeToString(AppendRLE(nil, ids))
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return DecodeRLEBytes(raw, 0)
}
