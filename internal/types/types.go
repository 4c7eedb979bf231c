package types

import "time"

// MIMETypeMP4 is the only container the trimmer accepts and produces.
const MIMETypeMP4 = "video/mp4"

// FileHandle is what a picker hands over: where the bytes live and the name the
// user knows the file by. Uploads keep their original name while Path points at a
// scratch copy.
type FileHandle struct {
	Path string
	Name string
}

// MediaFile is an accepted selection. It is replaced on the next selection and
// never mutated.
type MediaFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

type TimeRange struct {
	Start float64
	End   float64
}

func (r TimeRange) Length() float64 { return r.End - r.Start }

// Progress is what the surface shows while the engine loads or works.
type Progress struct {
	Visible bool
	Label   string
	Percent int
}

type CutResult struct {
	ID       string
	Input    string
	Output   string
	Location string
	MIMEType string
	Bytes    int64
	StartSec float64
	EndSec   float64
	Took     time.Duration
}
