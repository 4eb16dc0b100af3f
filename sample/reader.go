package sample

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/reducer"
	"github.com/spf13/cast"
)

const TimeLayout = "2006-01-02 15:04:05.999999Z07:00"

// ReadPoints reads "value,timestamp" lines. The first line is a header; lines that do not parse are skipped.
func ReadPoints(r io.Reader, logger l.Wrapper) (ps []reducer.Point, err error) {
	err = readLines(r, logger, func(fields []string) error {
		if len(fields) < 2 {
			return ErrTooFewFields
		}

		value, e := cast.ToFloat64E(strings.TrimSpace(fields[0]))
		if e != nil {
			return e
		}

		timestamp, e := cast.ToFloat64E(strings.TrimSpace(fields[1]))
		if e != nil {
			return e
		}

		ps = append(ps, reducer.NewPoint(value, timestamp))

		return nil
	})

	return
}

// ReadLocationPoints reads "time,lat,long" lines with times formatted as TimeLayout.
func ReadLocationPoints(r io.Reader, logger l.Wrapper) (ps []reducer.Point, err error) {
	err = readLines(r, logger, func(fields []string) error {
		if len(fields) < 3 {
			return ErrTooFewFields
		}

		at, e := time.Parse(TimeLayout, strings.TrimSpace(fields[0]))
		if e != nil {
			return e
		}

		lat, e := cast.ToFloat64E(strings.TrimSpace(fields[1]))
		if e != nil {
			return e
		}

		long, e := cast.ToFloat64E(strings.TrimSpace(fields[2]))
		if e != nil {
			return e
		}

		ps = append(ps, reducer.NewLocationPoint(lat, long, at))

		return nil
	})

	return
}

func readLines(r io.Reader, logger l.Wrapper, fn func(fields []string) error) error {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	scanner := bufio.NewScanner(r)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		if lineNo == 1 {
			continue
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := fn(strings.Split(line, ",")); err != nil {
			logger.WithFields(l.ErrorField(err), l.IntField("line", lineNo)).Debug("skip line")
		}
	}

	return errors.Wrap(scanner.Err(), "read samples")
}
