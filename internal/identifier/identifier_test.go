package identifier

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSequence struct {
	next int64
	err  error
}

func (s *stubSequence) NextSequence(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next++
	return s.next, nil
}

func TestUniqueCodeShape(t *testing.T) {
	g := NewGenerator("RJB", &stubSequence{})
	pattern := regexp.MustCompile(`^RJB[A-Z0-9]{8}$`)
	for i := 0; i < 100; i++ {
		code := g.UniqueCode()
		assert.True(t, pattern.MatchString(code), "unexpected code %q", code)
	}
}

func TestReferenceIDFormat(t *testing.T) {
	g := NewGenerator("RJB", &stubSequence{next: 41}).
		WithClock(func() time.Time {
			return time.Date(2026, time.March, 7, 14, 32, 9, 0, time.UTC)
		})

	id, err := g.ReferenceID(context.Background(), "usd", "+233 24 555 0182")
	require.NoError(t, err)
	assert.Equal(t, "USD-182-0703143209-00042", id)
}

func TestReferenceIDPhoneEdgeCases(t *testing.T) {
	clock := func() time.Time {
		return time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	}

	cases := []struct {
		name  string
		phone string
		want  string
	}{
		{name: "no_phone", phone: "", want: "USD-000-0201030405-00001"},
		{name: "short_phone", phone: "+7", want: "USD-007-0201030405-00001"},
		{name: "letters_ignored", phone: "ext. 55", want: "USD-055-0201030405-00001"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator("RJB", &stubSequence{}).WithClock(clock)
			id, err := g.ReferenceID(context.Background(), "USD", tc.phone)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestReferenceIDSequenceAdvances(t *testing.T) {
	g := NewGenerator("RJB", &stubSequence{}).
		WithClock(func() time.Time {
			return time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		})

	first, err := g.ReferenceID(context.Background(), "GHS", "024555")
	require.NoError(t, err)
	second, err := g.ReferenceID(context.Background(), "GHS", "024555")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `-00001$`, first)
	assert.Regexp(t, `-00002$`, second)
}

func TestGeneratorDefaultsPrefix(t *testing.T) {
	g := NewGenerator("", &stubSequence{})
	assert.Regexp(t, `^RJB`, g.UniqueCode())
}
