package cache

import "strconv"

func encodeCount(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

func decodeCount(b []byte) int64 {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
