package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/railquery/railquery_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter returns a canned answer or error
type fakeInterpreter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeInterpreter) Interpret(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.answer, f.err
}

// fixedNow is a Wednesday
var fixedNow = time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)

func newTestNormalizer(interp *fakeInterpreter) *Normalizer {
	n := NewNormalizer(nil)
	if interp != nil {
		n.interp = interp
	}
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestParseShorthand(t *testing.T) {
	t.Run("full form", func(t *testing.T) {
		q, ok := ParseShorthand("high-speed Beijing Shanghai 2024-06-05 09:00", "2024-06-05")
		require.True(t, ok)
		assert.Equal(t, models.TypeHighSpeed, q.Type)
		assert.Equal(t, "Beijing", q.From)
		assert.Equal(t, "Shanghai", q.To)
		assert.Equal(t, "2024-06-05", q.Date)
		assert.Equal(t, models.TimeExact, q.Time.Kind)
		assert.Equal(t, "09:00", q.Time.Clock)
	})

	t.Run("missing date defaults to today", func(t *testing.T) {
		q, ok := ParseShorthand("ordinary Beijing Shanghai", "2024-06-05")
		require.True(t, ok)
		assert.Equal(t, "2024-06-05", q.Date)
		assert.Equal(t, models.TimeNone, q.Time.Kind)
	})

	t.Run("time without date", func(t *testing.T) {
		q, ok := ParseShorthand("inter-city Chengdu Chongqing 9:30", "2024-06-05")
		require.True(t, ok)
		assert.Equal(t, "2024-06-05", q.Date)
		assert.Equal(t, "09:30", q.Time.Clock)
	})

	t.Run("type synonym is canonicalized", func(t *testing.T) {
		q, ok := ParseShorthand("K-train Beijing Shanghai", "2024-06-05")
		require.True(t, ok)
		assert.Equal(t, models.TypeOrdinary, q.Type)
	})

	t.Run("not shorthand", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"high-speed Beijing",
			"maglev Beijing Shanghai",
			"high-speed Beijing Shanghai junk",
			"where is the station",
		} {
			_, ok := ParseShorthand(raw, "2024-06-05")
			assert.False(t, ok, "raw %q should not parse as shorthand", raw)
		}
	})
}

func TestNormalizeRoundTrip(t *testing.T) {
	n := newTestNormalizer(nil)

	inputs := []string{
		"high-speed Beijing Shanghai 2024-06-05 09:00",
		"inter-city Chengdu Chongqing 2024-07-01",
		"ordinary Wuhan Changsha 2024-06-05 23:30",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			q, err := n.Normalize(context.Background(), raw)
			require.NoError(t, err)

			again, err := n.Normalize(context.Background(), Format(q))
			require.NoError(t, err)
			assert.Equal(t, q, again)
			assert.Equal(t, raw, Format(q))
		})
	}
}

func TestNormalizeRejectsSameOriginDestination(t *testing.T) {
	n := newTestNormalizer(nil)
	_, err := n.Normalize(context.Background(), "high-speed Beijing Beijing")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestNormalizeNaturalLanguageFallback(t *testing.T) {
	n := newTestNormalizer(nil)

	t.Run("afternoon hour is shifted to 24h", func(t *testing.T) {
		q, err := n.Normalize(context.Background(),
			"tomorrow afternoon 3 o'clock high-speed from Chengdu to Chongqing")
		require.NoError(t, err)

		assert.Equal(t, models.TypeHighSpeed, q.Type)
		assert.Equal(t, "Chengdu", q.From)
		assert.Equal(t, "Chongqing", q.To)
		assert.Equal(t, "2024-06-06", q.Date)
		assert.Equal(t, models.TimeExact, q.Time.Kind)
		assert.Equal(t, "15:00", q.Time.Clock)
	})

	t.Run("day after tomorrow", func(t *testing.T) {
		q, err := n.Normalize(context.Background(),
			"ordinary train from Wuhan to Changsha the day after tomorrow")
		require.NoError(t, err)
		assert.Equal(t, models.TypeOrdinary, q.Type)
		assert.Equal(t, "2024-06-07", q.Date)
	})

	t.Run("fuzzy time becomes approximate", func(t *testing.T) {
		q, err := n.Normalize(context.Background(),
			"high-speed from Beijing to Shanghai around 10:30")
		require.NoError(t, err)
		assert.Equal(t, models.TimeApprox, q.Time.Kind)
		assert.Equal(t, "10:30", q.Time.Clock)
	})

	t.Run("daypart without explicit time", func(t *testing.T) {
		q, err := n.Normalize(context.Background(),
			"high-speed from Beijing to Shanghai tomorrow morning")
		require.NoError(t, err)
		assert.Equal(t, models.TimeDaypart, q.Time.Kind)
		assert.Equal(t, models.DaypartMorning, q.Time.Daypart)
		assert.Equal(t, "09:00", q.Time.Clock)
	})

	t.Run("evening daypart", func(t *testing.T) {
		q, err := n.Normalize(context.Background(),
			"inter-city from Nanjing to Hangzhou in the evening")
		require.NoError(t, err)
		assert.Equal(t, models.TimeDaypart, q.Time.Kind)
		assert.Equal(t, models.DaypartDusk, q.Time.Daypart)
	})

	t.Run("bare A to B form", func(t *testing.T) {
		q, err := n.Normalize(context.Background(), "high-speed Chengdu to Chongqing tomorrow")
		require.NoError(t, err)
		assert.Equal(t, "Chengdu", q.From)
		assert.Equal(t, "Chongqing", q.To)
	})

	t.Run("explicit date in free text wins", func(t *testing.T) {
		q, err := n.Normalize(context.Background(),
			"high-speed from Chengdu to Shanghai on 2024-07-01 via Nanjing")
		require.NoError(t, err)
		assert.Equal(t, "Chengdu", q.From)
		assert.Equal(t, "Shanghai", q.To)
		assert.Equal(t, "2024-07-01", q.Date)
	})

	t.Run("no route is unparseable", func(t *testing.T) {
		_, err := n.Normalize(context.Background(), "high-speed tickets please")
		assert.ErrorIs(t, err, ErrUnparseable)
	})
}

func TestNormalizeWithInterpreter(t *testing.T) {
	t.Run("interpreter answer is used", func(t *testing.T) {
		interp := &fakeInterpreter{answer: "high-speed Chengdu Chongqing 2024-06-06 15:00"}
		n := newTestNormalizer(interp)

		q, err := n.Normalize(context.Background(), "get me to Chongqing from Chengdu tomorrow at 3 pm by bullet train")
		require.NoError(t, err)
		assert.Equal(t, 1, interp.calls)
		assert.Equal(t, models.TypeHighSpeed, q.Type)
		assert.Equal(t, "2024-06-06", q.Date)
		assert.Equal(t, "15:00", q.Time.Clock)
	})

	t.Run("fenced answer is unwrapped", func(t *testing.T) {
		interp := &fakeInterpreter{answer: "```\nhigh-speed Chengdu Chongqing 2024-06-06\n```"}
		n := newTestNormalizer(interp)

		q, err := n.Normalize(context.Background(), "high-speed from Chengdu to Chongqing tomorrow")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-06", q.Date)
	})

	t.Run("malformed interpreter date is repaired from the text", func(t *testing.T) {
		interp := &fakeInterpreter{answer: "high-speed Chengdu Chongqing someday 09:00"}
		n := newTestNormalizer(interp)

		q, err := n.Normalize(context.Background(), "high-speed from Chengdu to Chongqing tomorrow at 9:00")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-06", q.Date)
		assert.Equal(t, "09:00", q.Time.Clock)
	})

	t.Run("interpreter error falls back to local rules", func(t *testing.T) {
		interp := &fakeInterpreter{err: errors.New("boom")}
		n := newTestNormalizer(interp)

		q, err := n.Normalize(context.Background(), "high-speed from Chengdu to Chongqing tomorrow")
		require.NoError(t, err)
		assert.Equal(t, "Chengdu", q.From)
		assert.Equal(t, "2024-06-06", q.Date)
	})

	t.Run("unusable interpreter answer falls back", func(t *testing.T) {
		interp := &fakeInterpreter{answer: "I could not understand that query."}
		n := newTestNormalizer(interp)

		q, err := n.Normalize(context.Background(), "high-speed from Chengdu to Chongqing")
		require.NoError(t, err)
		assert.Equal(t, "Chongqing", q.To)
	})

	t.Run("shorthand never calls the interpreter", func(t *testing.T) {
		interp := &fakeInterpreter{answer: "unused"}
		n := newTestNormalizer(interp)

		_, err := n.Normalize(context.Background(), "high-speed Beijing Shanghai")
		require.NoError(t, err)
		assert.Equal(t, 0, interp.calls)
	})
}

func TestLooksLikeTicketQuery(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"high-speed from Beijing to Shanghai", true},
		{"ordinary train Wuhan to Changsha", true},
		{"bullet train from Chengdu until Chongqing", true},
		{"what is the weather like", false},
		{"I love trains", false},
		{"go to the store", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, LooksLikeTicketQuery(tt.text))
		})
	}
}

func TestExtractHubHint(t *testing.T) {
	hubs := []string{"Wuhan", "Zhengzhou", "Nanjing"}

	assert.Equal(t, "Wuhan", ExtractHubHint("high-speed Chengdu to Shanghai via Wuhan", hubs))
	assert.Equal(t, "Nanjing", ExtractHubHint("transfer at Nanjing please", hubs))
	assert.Equal(t, "Zhengzhou", ExtractHubHint("Chengdu to Shanghai through Zhengzhou", hubs))
	assert.Empty(t, ExtractHubHint("Chengdu to Shanghai", hubs))
}
