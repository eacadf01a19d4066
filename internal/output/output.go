// Package output renders transcription segments in the file formats the
// whisper.cpp command line tool produces.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
)

// Format is an output file format, named by its file extension.
type Format string

const (
	Txt  Format = "txt"
	Vtt  Format = "vtt"
	Srt  Format = "srt"
	Csv  Format = "csv"
	JSON Format = "json"
	Lrc  Format = "lrc"
)

// Formats returns the formats enabled in cfg, in a stable order.
func Formats(cfg config.TranscriptionConfig) []Format {
	var fs []Format
	if cfg.OutputTxt {
		fs = append(fs, Txt)
	}
	if cfg.OutputVtt {
		fs = append(fs, Vtt)
	}
	if cfg.OutputSrt {
		fs = append(fs, Srt)
	}
	if cfg.OutputCsv {
		fs = append(fs, Csv)
	}
	if cfg.OutputJSON {
		fs = append(fs, JSON)
	}
	if cfg.OutputLrc {
		fs = append(fs, Lrc)
	}
	return fs
}

// WriteFiles writes one file per format named base + "." + format and
// returns the written paths.
func WriteFiles(base string, formats []Format, segs []engine.Segment) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + string(f)
		if err := writeFile(path, f, segs); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, f Format, segs []engine.Segment) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %q: %w", path, err)
	}
	if err := Write(out, f, segs); err != nil {
		_ = out.Close()
		return fmt.Errorf("output: write %q: %w", path, err)
	}
	return out.Close()
}

// Write renders segs in format f.
func Write(w io.Writer, f Format, segs []engine.Segment) error {
	switch f {
	case Txt:
		return writeTxt(w, segs)
	case Vtt:
		return writeVtt(w, segs)
	case Srt:
		return writeSrt(w, segs)
	case Csv:
		return writeCsv(w, segs)
	case JSON:
		return writeJSON(w, segs)
	case Lrc:
		return writeLrc(w, segs)
	default:
		return fmt.Errorf("output: unknown format %q", f)
	}
}

func speakerPrefix(s engine.Segment) string {
	if s.Speaker == "" {
		return ""
	}
	return "(speaker " + s.Speaker + ")"
}

func writeTxt(w io.Writer, segs []engine.Segment) error {
	for _, s := range segs {
		if _, err := fmt.Fprintf(w, "%s%s\n", speakerPrefix(s), s.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeVtt(w io.Writer, segs []engine.Segment) error {
	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, s := range segs {
		_, err := fmt.Fprintf(w, "%s --> %s\n%s%s\n\n",
			timestamp(s.Start, '.'), timestamp(s.End, '.'), speakerPrefix(s), s.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeSrt(w io.Writer, segs []engine.Segment) error {
	for i, s := range segs {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s%s\n\n",
			i+1, timestamp(s.Start, ','), timestamp(s.End, ','), speakerPrefix(s), s.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// writeCsv writes times in milliseconds and always quotes the text column,
// doubling embedded quotes, as whisper.cpp does.
func writeCsv(w io.Writer, segs []engine.Segment) error {
	diarized := hasSpeakers(segs)

	header := "start,end,text\n"
	if diarized {
		header = "start,end,speaker,text\n"
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, s := range segs {
		row := strconv.FormatInt(s.Start.Milliseconds(), 10) + "," + strconv.FormatInt(s.End.Milliseconds(), 10) + ","
		if diarized {
			row += s.Speaker + ","
		}
		row += `"` + strings.ReplaceAll(s.Text, `"`, `""`) + `"` + "\n"
		if _, err := io.WriteString(w, row); err != nil {
			return err
		}
	}
	return nil
}

type jsonSpan struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type jsonOffsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type jsonSegment struct {
	Timestamps jsonSpan    `json:"timestamps"`
	Offsets    jsonOffsets `json:"offsets"`
	Text       string      `json:"text"`
	Speaker    string      `json:"speaker,omitempty"`
}

func writeJSON(w io.Writer, segs []engine.Segment) error {
	doc := struct {
		Transcription []jsonSegment `json:"transcription"`
	}{Transcription: make([]jsonSegment, 0, len(segs))}

	for _, s := range segs {
		doc.Transcription = append(doc.Transcription, jsonSegment{
			Timestamps: jsonSpan{From: timestamp(s.Start, ','), To: timestamp(s.End, ',')},
			Offsets:    jsonOffsets{From: s.Start.Milliseconds(), To: s.End.Milliseconds()},
			Text:       s.Text,
			Speaker:    s.Speaker,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func writeLrc(w io.Writer, segs []engine.Segment) error {
	if _, err := io.WriteString(w, "[by:whisper.cpp]\n"); err != nil {
		return err
	}
	for _, s := range segs {
		cs := s.Start.Milliseconds() / 10
		_, err := fmt.Fprintf(w, "[%02d:%02d.%02d]%s%s\n",
			cs/6000, (cs/100)%60, cs%100, speakerPrefix(s), strings.TrimLeft(s.Text, " "))
		if err != nil {
			return err
		}
	}
	return nil
}

// timestamp formats d as HH:MM:SS<sep>mmm.
func timestamp(d time.Duration, sep byte) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

func hasSpeakers(segs []engine.Segment) bool {
	for _, s := range segs {
		if s.Speaker != "" {
			return true
		}
	}
	return false
}

// WriteConsole prints segs the way whisper.cpp prints them to the terminal,
// one segment per line, prefixed with its time span unless timestamps is false.
func WriteConsole(w io.Writer, segs []engine.Segment, timestamps bool) error {
	for _, s := range segs {
		var err error
		if timestamps {
			_, err = fmt.Fprintf(w, "[%s --> %s]  %s%s\n",
				timestamp(s.Start, '.'), timestamp(s.End, '.'), speakerPrefix(s), s.Text)
		} else {
			_, err = fmt.Fprintf(w, "%s%s\n", speakerPrefix(s), s.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
