package candle

import "fmt"

// Resample aggregates candles from a source timeframe into a destination
// timeframe. It fails if dst is not a valid (coarser, evenly-divisible)
// parent of src. Candles are grouped by their aligned destination timestamp;
// within a group, open is picked from the earliest source candle, close
// from the latest, high/low/volume are aggregated across all members. Input
// need not be pre-sorted; output is sorted ascending by timestamp. Empty
// input yields empty output.
func Resample(cs []Candle, src, dst Timeframe) ([]Candle, error) {
	if !IsParentOf(dst, src) {
		return nil, fmt.Errorf("resample: %s is not a valid parent of %s", dst, src)
	}
	if len(cs) == 0 {
		return nil, nil
	}

	sorted := make([]Candle, len(cs))
	copy(sorted, cs)
	SortByTimestamp(sorted)

	groups := make(map[int64][]Candle)
	var order []int64
	for _, c := range sorted {
		key := Align(c.Timestamp, dst).Unix()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	out := make([]Candle, 0, len(order))
	for _, key := range order {
		members := groups[key]
		SortByTimestamp(members)
		agg := Candle{
			Symbol:    members[0].Symbol,
			Timeframe: dst,
			Source:    members[0].Source,
			Timestamp: Align(members[0].Timestamp, dst),
			Open:      members[0].Open,
			Close:     members[len(members)-1].Close,
			High:      members[0].High,
			Low:       members[0].Low,
		}
		for _, m := range members {
			if m.High > agg.High {
				agg.High = m.High
			}
			if m.Low < agg.Low {
				agg.Low = m.Low
			}
			agg.Volume += m.Volume
		}
		out = append(out, agg)
	}

	SortByTimestamp(out)
	return out, nil
}
