package main

import "strconv"

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
