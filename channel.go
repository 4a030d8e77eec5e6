package bmschart

const (
	ChannelBGM           = 1
	ChannelMeasureLength = 2
	ChannelBPM           = 3
	ChannelBGABase       = 4
	ChannelBGAPoor       = 6
	ChannelBGALayer      = 7
	ChannelExtendedBPM   = 8
	ChannelStop          = 9
)

// 1P visible 11-19, 2P visible 21-29, 1P long 51-59, 2P long 61-69.
// 16/26/56/66 are the turntables. 17/27/57/67 (free zone, pedal) have no column.
var columnTable = map[int]int{
	16: 0, 11: 1, 12: 2, 13: 3, 14: 4, 15: 5, 18: 6, 19: 7,
	26: 8, 21: 9, 22: 10, 23: 11, 24: 12, 25: 13, 28: 14, 29: 15,
}

func (ctx *DecoderContext) applyChannel(measure, channel int, data string) {
	if channel == ChannelMeasureLength {
		if v, ok := ParseFloat(data); ok && v > 0 {
			ctx.MeasureLengths[measure] = v
		}
		return
	}

	codes := SplitObjects(data)
	for i, code := range codes {
		if code == "00" {
			continue
		}
		ctx.Events = append(ctx.Events, RawEvent{
			Measure:  measure,
			Channel:  channel,
			Position: float64(i) / float64(len(codes)),
			Code:     code,
		})
	}
}

// IsNoteChannel reports whether the channel carries playable objects.
func IsNoteChannel(channel int) bool {
	_, ok := ColumnOf(channel)
	return ok
}

func IsLongNoteChannel(channel int) bool {
	return (channel >= 51 && channel <= 59) || (channel >= 61 && channel <= 69)
}

func IsScratchChannel(channel int) bool {
	return channel == 16 || channel == 26 || channel == 56 || channel == 66
}

// ColumnOf maps a note channel to its zero-based column.
func ColumnOf(channel int) (int, bool) {
	if IsLongNoteChannel(channel) {
		channel -= 40
	}
	col, ok := columnTable[channel]
	return col, ok
}
