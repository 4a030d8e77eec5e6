package bmschart

import "strconv"

// RawEvent is one object occurrence read from a channel line.
type RawEvent struct {
	Measure  int
	Channel  int
	Position float64 // [0, 1) within the measure
	Code     string  // 2 characters, upper case
}

type TimingPoint struct {
	Time       float64 `json:"time"`       // ms
	BeatLength float64 `json:"beatLength"` // ms per beat, 60000 / bpm
}

// BPM returns the tempo of the point.
func (tp TimingPoint) BPM() float64 {
	return 60000 / tp.BeatLength
}

type NoteKind int

const (
	NoteTap NoteKind = iota
	NoteHold
)

type SampleRef struct {
	Index string `json:"index"`
	File  string `json:"file"`
}

type Note struct {
	Column   int         `json:"column"`
	Time     float64     `json:"time"`     // ms
	Duration float64     `json:"duration"` // ms, > 0 only for NoteHold
	Kind     NoteKind    `json:"kind"`
	Scratch  bool        `json:"scratch"`
	Samples  []SampleRef `json:"samples"`
}

func (n Note) IsHold() bool {
	return n.Kind == NoteHold
}

func (n Note) EndTime() float64 {
	return n.Time + n.Duration
}

// SampleEvent is a background (BGM channel) sample trigger.
type SampleEvent struct {
	Time   float64   `json:"time"`
	Sample SampleRef `json:"sample"`
}

type BGALayer int

const (
	BGABase BGALayer = iota
	BGAPoor
	BGALayer1
)

type BitmapEvent struct {
	Time  float64  `json:"time"`
	Layer BGALayer `json:"layer"`
	Index string   `json:"index"`
	File  string   `json:"file"`
}

type Metadata struct {
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle"`
	Artist     string  `json:"artist"`
	Subartist  string  `json:"subartist"`
	Genre      string  `json:"genre"`
	StageFile  string  `json:"stageFile"`
	Banner     string  `json:"banner"`
	PlayLevel  int     `json:"playLevel"`
	Difficulty int     `json:"difficulty"` // 1 beginner .. 5 insane, 0 unknown
	Rank       int     `json:"rank"`       // 0 very hard .. 3 easy
	Total      float64 `json:"total"`
	InitialBPM float64 `json:"initialBpm"`
	LNType     int     `json:"lnType"` // 1 LN, 2 CN, 3 HCN
	LNObj      string  `json:"lnObj"`
}

func NewMetadata() Metadata {
	var m Metadata
	m.Rank = 2
	m.Total = 100
	m.InitialBPM = 130
	m.LNType = 1
	return m
}

// DifficultyName returns the conventional tier name, or "Level N" when unknown.
func (m Metadata) DifficultyName() string {
	switch m.Difficulty {
	case 1:
		return "Beginner"
	case 2:
		return "Normal"
	case 3:
		return "Hyper"
	case 4:
		return "Another"
	case 5:
		return "Insane"
	}
	return "Level " + strconv.Itoa(m.PlayLevel)
}

type Chart struct {
	Metadata          Metadata          `json:"metadata"`
	TimingPoints      []TimingPoint     `json:"timingPoints"`
	Notes             []Note            `json:"notes"`
	BackgroundSamples []SampleEvent     `json:"backgroundSamples"`
	BackgroundImages  []BitmapEvent     `json:"backgroundImages"`
	Samples           map[string]string `json:"samples"` // WAV index -> file
	Bitmaps           map[string]string `json:"bitmaps"` // BMP index -> file
	ColumnCount       int               `json:"columnCount"`
	HasScratch        bool              `json:"hasScratch"`
	HasLongNotes      bool              `json:"hasLongNotes"`
}

func NewChart() *Chart {
	return &Chart{
		Metadata:          NewMetadata(),
		TimingPoints:      make([]TimingPoint, 0),
		Notes:             make([]Note, 0),
		BackgroundSamples: make([]SampleEvent, 0),
		BackgroundImages:  make([]BitmapEvent, 0),
		Samples:           map[string]string{},
		Bitmaps:           map[string]string{},
	}
}

// Duration is the end time of the last note, in ms.
func (c *Chart) Duration() float64 {
	var end float64
	for _, n := range c.Notes {
		if e := n.EndTime(); e > end {
			end = e
		}
	}
	return end
}
