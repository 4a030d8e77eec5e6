package bmschart

import (
	"math"
	"strconv"
	"strings"
)

// DecoderContext holds everything accumulated during one decode pass. A new
// context is created for every decode call and dropped afterwards.
type DecoderContext struct {
	Metadata Metadata

	Samples map[string]string  // #WAVxx
	Bitmaps map[string]string  // #BMPxx
	BPMs    map[string]float64 // #BPMxx
	Stops   map[string]float64 // #STOPxx

	MeasureLengths map[int]float64
	Events         []RawEvent
}

func NewDecoderContext() *DecoderContext {
	return &DecoderContext{
		Metadata:       NewMetadata(),
		Samples:        map[string]string{},
		Bitmaps:        map[string]string{},
		BPMs:           map[string]float64{},
		Stops:          map[string]float64{},
		MeasureLengths: map[int]float64{},
		Events:         make([]RawEvent, 0),
	}
}

// Apply feeds one directive into the context.
func (ctx *DecoderContext) Apply(d Directive) {
	switch d.Kind {
	case HeaderDirective:
		ctx.applyHeader(d.Command, d.Index, d.Value)
	case ChannelDirective:
		ctx.applyChannel(d.Measure, d.Channel, d.Data)
	}
}

func (ctx *DecoderContext) applyHeader(command, index, value string) {
	md := &ctx.Metadata
	switch command {
	case "TITLE":
		md.Title = value
	case "SUBTITLE":
		md.Subtitle = value
	case "ARTIST":
		md.Artist = value
	case "SUBARTIST":
		md.Subartist = value
	case "GENRE":
		md.Genre = value
	case "STAGEFILE":
		md.StageFile = value
	case "BANNER":
		md.Banner = value
	case "PLAYLEVEL":
		if v, ok := ParseInt(value); ok {
			md.PlayLevel = v
		}
	case "DIFFICULTY":
		if v, ok := ParseInt(value); ok {
			md.Difficulty = v
		}
	case "RANK":
		if v, ok := ParseInt(value); ok {
			md.Rank = v
		}
	case "TOTAL":
		if v, ok := ParseFloat(value); ok {
			md.Total = v
		}
	case "LNTYPE":
		if v, ok := ParseInt(value); ok {
			md.LNType = v
		}
	case "LNOBJ":
		if len(value) == 2 {
			md.LNObj = strings.ToUpper(value)
		}
	case "BPM":
		v, ok := ParseBPM(value)
		if !ok {
			return
		}
		if index == "" {
			md.InitialBPM = v
		} else {
			ctx.BPMs[index] = v
		}
	case "WAV":
		if index != "" {
			ctx.Samples[index] = value
		}
	case "BMP":
		if index != "" {
			ctx.Bitmaps[index] = value
		}
	case "STOP":
		if v, ok := ParseFloat(value); ok && index != "" {
			ctx.Stops[index] = v
		}
	}
}

// ParseFloat parses a culture-invariant decimal number.
func ParseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseInt parses a decimal integer.
func ParseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBPM is ParseFloat restricted to positive tempos.
func ParseBPM(s string) (float64, bool) {
	v, ok := ParseFloat(s)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
