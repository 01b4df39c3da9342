package domain

import (
	"io"
	"log/slog"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestDecoder() *Decoder {
	return NewDecoder(nil, discardLogger())
}

func newTestCategorizer() *Categorizer {
	return NewCategorizer(time.UTC, FarFutureUnscheduled, discardLogger())
}

func decodeAndCategorize(text string, today time.Time) CategorizedResult {
	rows, _ := newTestDecoder().Decode(text)
	return newTestCategorizer().Categorize(rows, today)
}
