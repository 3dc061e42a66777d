package structure

import "github.com/tradecore/engine/internal/candle"

// Summary is the rolled-up view of a structure analysis pass, per spec §4.4.
type Summary struct {
	SwingsCount  int
	BOSCount     int
	CHoCHCount   int
	OrderBlocks  []OrderBlock
	FVGs         []FairValueGap
	CurrentTrend Trend
}

// Analyze runs swings, breaks, order blocks and FVG detection over cs and
// rolls the results up into a single Summary.
func Analyze(cs []candle.Candle, p Params) Summary {
	swings := FindSwings(cs, p)
	breaks, trend := DetectBreaks(cs, swings)

	bos, choch := 0, 0
	for _, b := range breaks {
		if b.Kind == BOS {
			bos++
		} else {
			choch++
		}
	}

	return Summary{
		SwingsCount:  len(swings),
		BOSCount:     bos,
		CHoCHCount:   choch,
		OrderBlocks:  DetectOrderBlocks(cs, p),
		FVGs:         DetectFVGs(cs, p),
		CurrentTrend: trend,
	}
}
