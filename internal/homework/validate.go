package homework

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Response is the validated view of one API answer.
//
// Homeworks is ordered most-recent-first. Raw is the document Validate was
// given; nothing is copied.
type Response struct {
	Homeworks   []gjson.Result
	CurrentDate int64
	Raw         gjson.Result
}

// Latest returns the most recently updated submission record.
func (r Response) Latest() (gjson.Result, bool) {
	if len(r.Homeworks) == 0 {
		return gjson.Result{}, false
	}
	return r.Homeworks[0], true
}

// Validate checks the top-level structure of an API answer. Individual
// submission records are left to Interpret.
func Validate(raw gjson.Result) (Response, error) {
	const op = "validate"

	if !raw.IsObject() {
		return Response{}, newError(KindShape, op, "response is not a JSON object (got %s)", raw.Type)
	}

	hw := raw.Get("homeworks")
	if !hw.Exists() {
		return Response{}, newError(KindShape, op, "response has no homeworks key")
	}
	if !hw.IsArray() {
		return Response{}, newError(KindShape, op, "homeworks is not a list (got %s)", hw.Type)
	}

	cd := raw.Get("current_date")
	if !cd.Exists() {
		return Response{}, newError(KindShape, op, "response has no current_date key")
	}
	if cd.Type != gjson.Number {
		return Response{}, newError(KindShape, op, "current_date is not an integer (got %s)", cd.Type)
	}
	ts, err := strconv.ParseInt(cd.Raw, 10, 64)
	if err != nil {
		return Response{}, newError(KindShape, op, "current_date is not an integer (got %s)", cd.Raw)
	}

	return Response{Homeworks: hw.Array(), CurrentDate: ts, Raw: raw}, nil
}
