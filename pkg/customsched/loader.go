package customsched

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/traingraph/traingraph/pkg/timetable"
	"github.com/traingraph/traingraph/pkg/util"
)

// ParseError marks a malformed custom schedule row. A schedule with
// unverifiable times is unsafe to plot partially, so the whole file load
// fails and no track is returned.
type ParseError struct {
	File string
	Row  int
	Err  error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("%s row %d: %v", err.File, err.Row, err.Err)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

type scheduleRow struct {
	Location string `csv:"Location"`
	Arr      string `csv:"Arr"`
	Dep      string `csv:"Dep"`
}

// Load parses a user authored schedule CSV into a service track. Required
// columns are Location, Arr and Dep with times in strict HH:MM:SS form. The
// track identifier is derived from the file name and every stop is tagged as
// custom origin; times are joined onto date.
func Load(path string, date time.Time) (*timetable.ServiceTrack, error) {
	fileName := filepath.Base(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []scheduleRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, &ParseError{File: fileName, Row: 1, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{File: fileName, Row: 1, Err: fmt.Errorf("no schedule rows")}
	}

	track := &timetable.ServiceTrack{
		Identifier: strings.ToUpper(strings.TrimSuffix(fileName, filepath.Ext(fileName))),
		Origin:     timetable.OriginCustom,
		Direction:  timetable.DirectionUnknown,
	}

	for index, row := range rows {
		// Header is row 1, so the first data row is row 2.
		rowNumber := index + 2

		if strings.TrimSpace(row.Location) == "" {
			return nil, &ParseError{File: fileName, Row: rowNumber, Err: fmt.Errorf("missing Location")}
		}

		arrival, err := parseStrictTime(row.Arr, date)
		if err != nil {
			return nil, &ParseError{File: fileName, Row: rowNumber, Err: fmt.Errorf("invalid Arr %q: %w", row.Arr, err)}
		}
		departure, err := parseStrictTime(row.Dep, date)
		if err != nil {
			return nil, &ParseError{File: fileName, Row: rowNumber, Err: fmt.Errorf("invalid Dep %q: %w", row.Dep, err)}
		}

		if arrival == nil && departure == nil {
			return nil, &ParseError{File: fileName, Row: rowNumber, Err: fmt.Errorf("neither Arr nor Dep present")}
		}

		track.Stops = append(track.Stops, timetable.StopEvent{
			Location:  strings.TrimSpace(row.Location),
			Arrival:   arrival,
			Departure: departure,
			Origin:    timetable.OriginCustom,
		})
	}

	log.Debug().Str("file", fileName).Int("stops", len(track.Stops)).Msg("Loaded custom schedule")

	return track, nil
}

func parseStrictTime(text string, date time.Time) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	parsed, err := time.Parse("15:04:05", text)
	if err != nil {
		return nil, err
	}

	dated := util.AddTimeToDate(date, parsed)
	return &dated, nil
}
