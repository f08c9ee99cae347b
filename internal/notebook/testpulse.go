package notebook

import (
	"math"
	"time"
)

// TestPulseBlock is one standalone test pulse acquisition, reconciled from
// two physical rows.
type TestPulseBlock struct {
	// Index is the block's position among all blocks of the file.
	Index int `json:"index"`
	// Row is the first physical row of the pair.
	Row       int                 `json:"row"`
	Timestamp time.Time           `json:"timestamp"`
	Channels  [NumChannels]Fields `json:"channels"`
}

func newTestPulseBlock(schema *Schema, cols Columns, first, second Row, index, row int) TestPulseBlock {
	stamp := first[cols.TimeStamp][0]
	merged := first.clone()
	merged.overlay(second)
	if math.IsNaN(stamp) {
		stamp = merged[cols.TimeStamp][0]
	}

	block := TestPulseBlock{
		Index:     index,
		Row:       row,
		Timestamp: IgorTime(stamp),
	}
	for c := 0; c < NumChannels; c++ {
		block.Channels[c] = columnFields(schema, merged, c)
	}
	return block
}

// Headstage returns the block's values for one headstage (0-7).
func (b *TestPulseBlock) Headstage(h int) (Fields, bool) {
	if h < 0 || h >= NumHeadstages {
		return Fields{}, false
	}
	return b.Channels[h], true
}

// Stimulus returns the test pulse parameters, which live in the global column.
func (b *TestPulseBlock) Stimulus() Fields {
	return b.Channels[GlobalChannel]
}
