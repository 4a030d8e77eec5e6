package bmschart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Directive
		ok   bool
	}{
		{"#TITLE foo bar", Directive{Kind: HeaderDirective, Command: "TITLE", Value: "foo bar"}, true},
		{"  #title\tfoo  ", Directive{Kind: HeaderDirective, Command: "TITLE", Value: "foo"}, true},
		{"#WAV01 kick.wav", Directive{Kind: HeaderDirective, Command: "WAV", Index: "01", Value: "kick.wav"}, true},
		{"#wav0z Snare 2.wav", Directive{Kind: HeaderDirective, Command: "WAV", Index: "0Z", Value: "Snare 2.wav"}, true},
		{"#BPM 150.5", Directive{Kind: HeaderDirective, Command: "BPM", Value: "150.5"}, true},
		{"#BPMAA 300", Directive{Kind: HeaderDirective, Command: "BPM", Index: "AA", Value: "300"}, true},
		{"#STOP01 48", Directive{Kind: HeaderDirective, Command: "STOP", Index: "01", Value: "48"}, true},
		{"#00111:01020304", Directive{Kind: ChannelDirective, Measure: 1, Channel: 11, Data: "01020304"}, true},
		{"#99902:0.75", Directive{Kind: ChannelDirective, Measure: 999, Channel: 2, Data: "0.75"}, true},
		{"#TITLE", Directive{}, false},
		{"* comment #TITLE x", Directive{}, false},
		{"", Directive{}, false},
		{"TITLE x", Directive{}, false},
		{"#0011A:01", Directive{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestSplitObjects(t *testing.T) {
	assert.Equal(t, []string{"01", "AZ", "00"}, SplitObjects("01az00"))
	// trailing odd character is dropped
	assert.Equal(t, []string{"01", "02"}, SplitObjects("01020"))
	assert.Empty(t, SplitObjects("0"))
}

func TestOddLengthChannelDataPositions(t *testing.T) {
	ctx := NewDecoderContext()
	ctx.applyChannel(0, 11, "0100020")

	assert.Equal(t, []RawEvent{
		{Measure: 0, Channel: 11, Position: 0, Code: "01"},
		{Measure: 0, Channel: 11, Position: 2.0 / 3.0, Code: "02"},
	}, ctx.Events)
}

func TestMeasureLengthOverride(t *testing.T) {
	ctx := NewDecoderContext()
	ctx.applyChannel(3, ChannelMeasureLength, "0.75")
	ctx.applyChannel(4, ChannelMeasureLength, "bad")
	ctx.applyChannel(5, ChannelMeasureLength, "-1")

	assert.Equal(t, map[int]float64{3: 0.75}, ctx.MeasureLengths)
	assert.Empty(t, ctx.Events)
}

func TestColumnMapping(t *testing.T) {
	tests := []struct {
		channel int
		column  int
		scratch bool
		long    bool
	}{
		{16, 0, true, false}, {11, 1, false, false}, {12, 2, false, false}, {13, 3, false, false},
		{14, 4, false, false}, {15, 5, false, false}, {18, 6, false, false}, {19, 7, false, false},
		{26, 8, true, false}, {21, 9, false, false}, {22, 10, false, false}, {23, 11, false, false},
		{24, 12, false, false}, {25, 13, false, false}, {28, 14, false, false}, {29, 15, false, false},
		{56, 0, true, true}, {51, 1, false, true}, {55, 5, false, true}, {59, 7, false, true},
		{66, 8, true, true}, {61, 9, false, true}, {69, 15, false, true},
	}
	for _, tt := range tests {
		for i := 0; i < 2; i++ {
			column, ok := ColumnOf(tt.channel)
			assert.True(t, ok, "channel %d", tt.channel)
			assert.Equal(t, tt.column, column, "channel %d", tt.channel)
			assert.Equal(t, tt.scratch, IsScratchChannel(tt.channel), "channel %d", tt.channel)
			assert.Equal(t, tt.long, IsLongNoteChannel(tt.channel), "channel %d", tt.channel)
			assert.True(t, IsNoteChannel(tt.channel), "channel %d", tt.channel)
		}
	}

	for _, channel := range []int{1, 2, 3, 8, 9, 17, 27, 31, 39, 57, 67} {
		_, ok := ColumnOf(channel)
		assert.False(t, ok, "channel %d", channel)
	}
}
