package redisds

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/facetset/memory"
)

// Hash field names carry a type prefix so records round-trip without a
// schema: "s:" string, "n:" number, "t:" time (RFC 3339), "m:" multi-value
// (ids joined with ","; ids must not contain commas).
const (
	prefixString = "s:"
	prefixNumber = "n:"
	prefixTime   = "t:"
	prefixMulti  = "m:"

	multiSep = ","
)

func encodeRecord(rec memory.Record) map[string]string {
	out := make(map[string]string,
		len(rec.Strings)+len(rec.Numbers)+len(rec.Times)+len(rec.Multi))
	for k, v := range rec.Strings {
		out[prefixString+k] = v
	}
	for k, v := range rec.Numbers {
		out[prefixNumber+k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	for k, v := range rec.Times {
		out[prefixTime+k] = v.UTC().Format(time.RFC3339)
	}
	for k, v := range rec.Multi {
		out[prefixMulti+k] = strings.Join(v, multiSep)
	}
	return out
}

func decodeRecord(id string, fields map[string]string) (memory.Record, error) {
	rec := memory.Record{
		ID:      id,
		Strings: map[string]string{},
		Numbers: map[string]float64{},
		Times:   map[string]time.Time{},
		Multi:   map[string][]string{},
	}
	for k, v := range fields {
		if len(k) < 2 {
			return rec, fmt.Errorf("malformed field %q", k)
		}
		name := k[2:]
		switch k[:2] {
		case prefixString:
			rec.Strings[name] = v
		case prefixNumber:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return rec, fmt.Errorf("field %s: %w", name, err)
			}
			rec.Numbers[name] = n
		case prefixTime:
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return rec, fmt.Errorf("field %s: %w", name, err)
			}
			rec.Times[name] = t
		case prefixMulti:
			if v == "" {
				rec.Multi[name] = nil
				continue
			}
			rec.Multi[name] = strings.Split(v, multiSep)
		default:
			return rec, fmt.Errorf("malformed field %q", k)
		}
	}
	return rec, nil
}
