package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
)

var (
	// ErrNotFound is returned by single-row lookups that find no row.
	ErrNotFound = errors.New("sqlite: not found")
	// ErrConflict is returned when a unique constraint rejects an insert
	// the caller did not expect to collide (callers that expect collisions
	// use an upsert instead and never see this).
	ErrConflict = errors.New("sqlite: conflict")
)

// wrapDBError classifies a raw *sqlite.Error (or any error) into the
// project's perr taxonomy so callers above the storage package never
// need to know this is SQLite specifically.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return perr.New(perr.KindNotFound, op, err)
	}
	if isConflict(err) {
		return perr.New(perr.KindValidation, op, err)
	}
	return perr.New(perr.KindStorage, op, err)
}

// wrapDBErrorf is wrapDBError for call sites whose op string carries a
// runtime key (the row a lookup missed, the product a join failed on) that
// belongs in the trace rather than a bare op name.
func wrapDBErrorf(err error, format string, args ...any) error {
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || strings.Contains(err.Error(), "no rows in result set")
}

func isConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
