package homework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestValidateAcceptsDocumentedShape(t *testing.T) {
	raw := gjson.Parse(`{"homeworks": [{"homework_name": "hw2", "status": "approved"}, {"homework_name": "hw1", "status": "rejected"}], "current_date": 1000}`)

	resp, err := Validate(raw)
	require.NoError(t, err)
	require.Equal(t, int64(1000), resp.CurrentDate)
	require.Len(t, resp.Homeworks, 2)
	require.Equal(t, raw.Raw, resp.Raw.Raw)

	latest, ok := resp.Latest()
	require.True(t, ok)
	require.Equal(t, "hw2", latest.Get("homework_name").String())
}

func TestValidateEmptyHomeworks(t *testing.T) {
	resp, err := Validate(gjson.Parse(`{"homeworks": [], "current_date": 5}`))
	require.NoError(t, err)
	_, ok := resp.Latest()
	require.False(t, ok)
}

func TestValidateRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"top-level list":         `[{"homeworks": []}]`,
		"top-level string":       `"homeworks"`,
		"missing homeworks":      `{"current_date": 1000}`,
		"homeworks is object":    `{"homeworks": {"homework_name": "hw1"}, "current_date": 1000}`,
		"homeworks is null":      `{"homeworks": null, "current_date": 1000}`,
		"homeworks is string":    `{"homeworks": "hw1", "current_date": 1000}`,
		"missing current_date":   `{"homeworks": []}`,
		"current_date is string": `{"homeworks": [], "current_date": "1000"}`,
		"current_date is float":  `{"homeworks": [], "current_date": 1000.5}`,
		"current_date is null":   `{"homeworks": [], "current_date": null}`,
		"current_date exponent":  `{"homeworks": [], "current_date": 1e3}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Validate(gjson.Parse(body))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrShape), "got %v", err)
		})
	}
}
